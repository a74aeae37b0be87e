// Package predict is the client for the external prediction service.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// DefaultEndpoint is the prediction route of the local model server.
const DefaultEndpoint = "http://127.0.0.1:5000/api/predict"

// Prediction labels returned by the simple backend.
const (
	LabelFraud    = "fraud"
	LabelNotFraud = "not fraud"
)

// Request is the body posted to the prediction service.
type Request struct {
	Features []float64 `json:"features"`
}

// Prediction is the service's answer. Two backend shapes exist: a plain
// label, and the two-agent ensemble with per-agent scores.
type Prediction struct {
	Label string `json:"prediction,omitempty"`

	Agent1Score     *float64 `json:"agent1_score,omitempty"`
	Agent2Score     *float64 `json:"agent2_score,omitempty"`
	FinalFraudScore *float64 `json:"final_fraud_score,omitempty"`
	Fraudulent      *bool    `json:"fraudulent,omitempty"`
}

// IsFraud reports the service's verdict.
func (p Prediction) IsFraud() bool {
	if p.Fraudulent != nil {
		return *p.Fraudulent
	}
	return strings.EqualFold(strings.TrimSpace(p.Label), LabelFraud)
}

// Probability returns the final score when the service sent one, otherwise
// 1 for a fraud label and 0 for anything else.
func (p Prediction) Probability() float64 {
	if p.FinalFraudScore != nil {
		return *p.FinalFraudScore
	}
	if p.IsFraud() {
		return 1
	}
	return 0
}

// DisplayLabel is the label shown to the user.
func (p Prediction) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}
	if p.IsFraud() {
		return LabelFraud
	}
	return LabelNotFraud
}

func (p Prediction) valid() bool {
	return p.Label != "" || p.Fraudulent != nil || p.FinalFraudScore != nil
}

// Client calls the prediction service over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a client for the configured endpoint.
func NewClient(cfg domain.PredictConfig, logger *slog.Logger) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Endpoint returns the URL the client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Predict posts the feature vector and decodes the answer.
// Every transport, status or decoding failure is ErrPredictionFailed.
func (c *Client) Predict(ctx context.Context, features []float64) (Prediction, error) {
	if features == nil {
		features = []float64{}
	}
	body, err := json.Marshal(Request{Features: features})
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", domain.ErrPredictionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", domain.ErrPredictionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("prediction request failed", "endpoint", c.endpoint, "error", err)
		return Prediction{}, fmt.Errorf("%w: %v", domain.ErrPredictionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Warn("prediction service returned error", "endpoint", c.endpoint, "status", resp.StatusCode)
		return Prediction{}, fmt.Errorf("%w: status %d", domain.ErrPredictionFailed, resp.StatusCode)
	}

	var p Prediction
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&p); err != nil {
		return Prediction{}, fmt.Errorf("%w: decode response: %v", domain.ErrPredictionFailed, err)
	}
	if !p.valid() {
		return Prediction{}, fmt.Errorf("%w: response carries no prediction", domain.ErrPredictionFailed)
	}

	c.logger.Debug("prediction received",
		"label", p.DisplayLabel(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return p, nil
}
