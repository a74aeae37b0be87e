package verdict

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/predict"
)

// Scorer produces a fraud probability in [0,1] for a behaviour record.
type Scorer interface {
	Name() string
	Score(ctx context.Context, in domain.InputRecord) (float64, error)
}

// Predictor is the prediction service as seen by the remote scorer.
type Predictor interface {
	Predict(ctx context.Context, features []float64) (predict.Prediction, error)
}

// NewScorer builds the behaviour scorer selected in config.
// The predictor is only required for the remote scorer.
func NewScorer(cfg domain.BehaviorConfig, predictor Predictor) (Scorer, error) {
	switch cfg.Scorer {
	case "", domain.ScorerNone:
		return NoneScorer{}, nil
	case domain.ScorerRandom:
		return NewRandomScorer(cfg.Seed), nil
	case domain.ScorerRemote:
		if predictor == nil {
			return nil, fmt.Errorf("remote scorer requires a prediction client")
		}
		return NewRemoteScorer(predictor), nil
	default:
		return nil, fmt.Errorf("unknown behavior scorer %q", cfg.Scorer)
	}
}

// NoneScorer is the behaviour model that does not exist yet.
type NoneScorer struct{}

func (NoneScorer) Name() string { return domain.ScorerNone }

func (NoneScorer) Score(context.Context, domain.InputRecord) (float64, error) {
	return 0, domain.ErrModelUnavailable
}

// RandomScorer draws a uniform probability per record. It stands in for a
// behaviour model and is never a real signal.
type RandomScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomScorer seeds a PCG source. Seed 0 seeds from the clock.
func NewRandomScorer(seed uint64) *RandomScorer {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return NewRandomScorerFrom(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRandomScorerFrom uses the given source.
func NewRandomScorerFrom(src rand.Source) *RandomScorer {
	return &RandomScorer{rng: rand.New(src)}
}

func (s *RandomScorer) Name() string { return domain.ScorerRandom }

func (s *RandomScorer) Score(ctx context.Context, _ domain.InputRecord) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64(), nil
}

// RemoteScorer asks the prediction service.
type RemoteScorer struct {
	predictor Predictor
}

// NewRemoteScorer wraps a predictor.
func NewRemoteScorer(p Predictor) *RemoteScorer {
	return &RemoteScorer{predictor: p}
}

func (s *RemoteScorer) Name() string { return domain.ScorerRemote }

func (s *RemoteScorer) Score(ctx context.Context, in domain.InputRecord) (float64, error) {
	p, err := s.predictor.Predict(ctx, BehaviorFeatures(in))
	if err != nil {
		return 0, err
	}
	prob := p.Probability()
	if prob < 0 {
		prob = 0
	}
	if prob > 1 {
		prob = 1
	}
	return prob, nil
}

// BehaviorFeatures is the feature vector sent for a behaviour record:
// hour, minute and weekday (Sunday = 0) of the session.
func BehaviorFeatures(in domain.InputRecord) []float64 {
	weekday := 0
	if d, err := time.Parse(domain.DateLayout, in.Date); err == nil {
		weekday = int(d.Weekday())
	}
	return []float64{float64(in.Hour()), float64(in.Minute()), float64(weekday)}
}
