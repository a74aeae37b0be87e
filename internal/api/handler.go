package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/fraudguard/internal/analysis"
	"github.com/opensource-finance/fraudguard/internal/app"
	"github.com/opensource-finance/fraudguard/internal/auth"
	"github.com/opensource-finance/fraudguard/internal/bus"
	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/ledger"
	"github.com/opensource-finance/fraudguard/internal/predict"
	"github.com/opensource-finance/fraudguard/internal/rules"
	"github.com/opensource-finance/fraudguard/internal/session"
	"github.com/opensource-finance/fraudguard/internal/throttle"
)

// Predictor calls the external prediction service.
type Predictor interface {
	Predict(ctx context.Context, features []float64) (predict.Prediction, error)
}

// RulesReloader re-reads the rules file into the engine.
type RulesReloader interface {
	Reload() error
}

// Handler holds dependencies for API handlers.
type Handler struct {
	sessions  *session.Manager
	authn     auth.Authenticator
	analyzer  *analysis.Analyzer
	throttle  *throttle.Service
	engine    *rules.Engine
	reloader  RulesReloader
	predictor Predictor
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		sessions:  deps.Sessions,
		authn:     deps.Authenticator,
		analyzer:  deps.Analyzer,
		throttle:  deps.Throttle,
		engine:    deps.Engine,
		reloader:  deps.Reloader,
		predictor: deps.Predictor,
		repo:      deps.Repository,
		cache:     deps.Cache,
		bus:       deps.Bus,
		version:   deps.Version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"
	checks := map[string]string{}

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			return
		}
		checks[name] = "ok"
	}

	if h.repo != nil {
		check("repository", h.repo.Ping)
	}
	if h.cache != nil {
		check("cache", h.cache.Ping)
	}
	if h.bus != nil {
		check("eventBus", h.bus.Ping)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"ready": "false",
				"error": "session cache unavailable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// KindOption describes one model kind for a picker.
type KindOption struct {
	Value       domain.ModelKind `json:"value"`
	Label       string           `json:"label"`
	Description string           `json:"description"`
}

// CatalogResponse lists every predefined choice a front end offers.
type CatalogResponse struct {
	Kinds           []KindOption    `json:"kinds"`
	Locations       []domain.Option `json:"locations"`
	Merchants       []domain.Option `json:"merchants"`
	Times           []domain.Option `json:"times"`
	StatusFilters   []string        `json:"statusFilters"`
	LocationFilters []string        `json:"locationFilters"`
}

// Catalog handles GET /catalog.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	kinds := make([]KindOption, len(domain.Kinds))
	for i, k := range domain.Kinds {
		kinds[i] = KindOption{Value: k, Label: k.Label(), Description: k.Description()}
	}

	writeJSON(w, http.StatusOK, CatalogResponse{
		Kinds:           kinds,
		Locations:       domain.LocationOptions,
		Merchants:       domain.MerchantOptions,
		Times:           domain.TimeOptions(),
		StatusFilters:   domain.StatusFilters,
		LocationFilters: domain.LocationFilters,
	})
}

// LoginRequest is the body of POST /sessions. The credential may also be
// sent as an Authorization bearer token.
type LoginRequest struct {
	Credential string `json:"credential"`
}

// LoginResponse is returned by POST /sessions.
type LoginResponse struct {
	SessionID string       `json:"sessionId"`
	Profile   auth.Profile `json:"profile"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Login handles POST /sessions.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := decodeOptional(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Credential == "" {
		req.Credential = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	profile, err := h.authn.Authenticate(ctx, req.Credential)
	if err != nil {
		slog.Warn("login rejected", "error", err)
		writeError(w, err)
		return
	}

	s, err := h.sessions.Create(ctx, profile)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, LoginResponse{
		SessionID: s.ID,
		Profile:   s.Profile,
		ExpiresAt: s.CreatedAt.Add(h.sessions.TTL()),
	})
}

// Logout handles DELETE /sessions. The session's ledger is discarded.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s := GetSession(r.Context())
	if err := h.sessions.Delete(r.Context(), s.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DashboardResponse is the full dashboard state for a session.
type DashboardResponse struct {
	Profile         auth.Profile `json:"profile"`
	Form            app.Form     `json:"form"`
	CanSubmit       bool         `json:"canSubmit"`
	Analyzing       bool         `json:"analyzing"`
	Progress        int          `json:"progress"`
	ProgressMessage string       `json:"progressMessage,omitempty"`
	LastError       string       `json:"lastError,omitempty"`
	app.View
}

func dashboardFor(s *session.Session) (DashboardResponse, error) {
	view, err := s.State.View()
	if err != nil {
		return DashboardResponse{}, err
	}
	return DashboardResponse{
		Profile:         s.Profile,
		Form:            s.State.Form,
		CanSubmit:       s.State.CanSubmit(),
		Analyzing:       s.State.Analyzing,
		Progress:        s.State.Progress,
		ProgressMessage: s.State.ProgressMessage,
		LastError:       s.State.LastError,
		View:            view,
	}, nil
}

func (h *Handler) writeDashboard(w http.ResponseWriter, s *session.Session) {
	resp, err := dashboardFor(s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Dashboard handles GET /dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.writeDashboard(w, GetSession(r.Context()))
}

// SelectModelRequest is the body of PUT /dashboard/model.
type SelectModelRequest struct {
	Kind string `json:"kind"`
}

// SelectModel handles PUT /dashboard/model.
func (h *Handler) SelectModel(w http.ResponseWriter, r *http.Request) {
	var req SelectModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}

	s, err := h.sessions.Dispatch(r.Context(), GetSession(r.Context()).ID, app.ModelSelected{Kind: kind})
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeDashboard(w, s)
}

// UpdateForm handles PUT /dashboard/form with a field → value object.
func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	events, err := fieldEvents(fields)
	if err != nil {
		writeError(w, err)
		return
	}

	s, err := h.sessions.Dispatch(r.Context(), GetSession(r.Context()).ID, events...)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeDashboard(w, s)
}

// FiltersRequest is the body of PUT /dashboard/filters.
type FiltersRequest struct {
	Status   string `json:"status"`
	Location string `json:"location"`
}

// SetFilters handles PUT /dashboard/filters.
func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var req FiltersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	status, err := domain.ParseStatusFilter(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	location, err := domain.ParseLocationFilter(req.Location)
	if err != nil {
		writeError(w, err)
		return
	}

	s, err := h.sessions.Dispatch(r.Context(), GetSession(r.Context()).ID,
		app.FiltersChanged{Status: status, Location: location})
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeDashboard(w, s)
}

// AnalyzeResponse is returned by POST /analyses.
type AnalyzeResponse struct {
	Record  domain.ResultRecord `json:"record"`
	TraceID string              `json:"traceId"`
	TotalMs int64               `json:"totalMs"`
}

// Analyze handles POST /analyses.
//
// The body is optional: any fields present are written into the session's
// form first, then the form is analysed. Only one analysis runs per session.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	s := GetSession(ctx)
	traceID := GetTraceID(ctx)

	var in domain.InputRecord
	if err := decodeOptional(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	prelude, err := inputEvents(in)
	if err != nil {
		writeError(w, err)
		return
	}

	begun, err := h.sessions.Update(ctx, s.ID, func(st app.State) (app.State, error) {
		st = app.ReduceAll(st, prelude...)
		if !st.CanSubmit() {
			return st, domain.ErrAnalysisInProgress
		}
		return app.Reduce(st, app.AnalysisStarted{}), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// State must leave "analysing" even if the client goes away.
	settle := context.WithoutCancel(ctx)

	// Only analyses that will actually run count against the budget.
	err = analysis.Check(begun.State.Ledger, begun.State.Input())
	if err == nil {
		err = h.throttle.Allow(ctx, s.ID)
	}
	if err != nil {
		if _, derr := h.sessions.Dispatch(settle, s.ID, app.AnalysisFailed{Err: err}); derr != nil {
			slog.Error("failed to reset session after rejected analysis", "session_id", s.ID, "error", derr)
		}
		writeError(w, err)
		return
	}

	progress := func(step analysis.Step) {
		if _, err := h.sessions.Dispatch(settle, s.ID, app.AnalysisProgressed{
			Percent: step.Percent,
			Message: step.Message,
		}); err != nil {
			slog.Warn("failed to record progress", "session_id", s.ID, "error", err)
		}
	}

	record, err := h.analyzer.Analyze(ctx, begun.State.Ledger, begun.State.Input(), progress)
	if err != nil {
		if _, derr := h.sessions.Dispatch(settle, s.ID, app.AnalysisFailed{Err: err}); derr != nil {
			slog.Error("failed to reset session after analysis error", "session_id", s.ID, "error", derr)
		}
		writeError(w, err)
		return
	}

	if _, err := h.sessions.Dispatch(settle, s.ID, app.AnalysisCompleted{Record: record}); err != nil {
		writeError(w, err)
		return
	}

	if h.bus != nil {
		ev := domain.RecordedEvent{
			SessionID: s.ID,
			UserEmail: s.Profile.Email,
			TraceID:   traceID,
			Record:    record,
		}
		if err := bus.PublishRecorded(settle, h.bus, ev); err != nil {
			slog.Error("failed to publish result",
				"session_id", s.ID,
				"record_id", record.ID,
				"error", err,
			)
		}
	}

	writeJSON(w, http.StatusCreated, AnalyzeResponse{
		Record:  record,
		TraceID: traceID,
		TotalMs: time.Since(start).Milliseconds(),
	})
}

// ListAnalyses handles GET /analyses. The status and location query
// parameters override the session's filters for this request only.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	records, summary, err := filteredRecords(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"summary": summary,
	})
}

// GetAnalysis handles GET /analyses/{id}.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	s := GetSession(r.Context())
	rec, err := s.State.Ledger.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ExportAnalyses handles GET /analyses/export as a CSV download.
func (h *Handler) ExportAnalyses(w http.ResponseWriter, r *http.Request) {
	s := GetSession(r.Context())
	records, _, err := filteredRecords(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := ledger.ExportCSV(&buf, records); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ledger.ExportFilename(s.State.Kind)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	Features []float64 `json:"features"`
}

// PredictResponse is returned by POST /predict.
type PredictResponse struct {
	predict.Prediction
	Result      string  `json:"result"`
	IsFraud     bool    `json:"isFraud"`
	Probability float64 `json:"probability"`
}

// Predict handles POST /predict by forwarding to the prediction service.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if len(req.Features) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "features are required",
		})
		return
	}

	p, err := h.predictor.Predict(r.Context(), req.Features)
	if err != nil {
		slog.Warn("prediction failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "Prediction failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		Prediction:  p,
		Result:      p.DisplayLabel(),
		IsFraud:     p.IsFraud(),
		Probability: p.Probability(),
	})
}

// ListRules handles GET /rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.GetLoadedRules()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": loaded,
		"count": len(loaded),
	})
}

// ValidateRule handles POST /rules/validate.
// The rule is compiled against the engine's environment but never loaded.
func (h *Handler) ValidateRule(w http.ResponseWriter, r *http.Request) {
	var cfg rules.RuleConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
		return
	}

	if err := h.engine.ValidateRule(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

// ReloadRules handles POST /rules/reload.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no rules file configured",
		})
		return
	}

	if err := h.reloader.Reload(); err != nil {
		slog.Error("failed to reload rules", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   h.engine.RulesCount(),
	})
}

func filteredRecords(r *http.Request) ([]domain.ResultRecord, ledger.Summary, error) {
	s := GetSession(r.Context())
	status, location := s.State.StatusFilter, s.State.LocationFilter

	q := r.URL.Query()
	if q.Has("status") {
		status = q.Get("status")
	}
	if q.Has("location") {
		location = q.Get("location")
	}

	records, err := s.State.Ledger.Filter(status, location)
	if err != nil {
		return nil, ledger.Summary{}, err
	}
	return records, ledger.Summarize(records), nil
}

var formFields = []string{
	app.FieldTransactionID, app.FieldAmount, app.FieldMerchant, app.FieldLocation,
	app.FieldUserID, app.FieldSessionID, app.FieldDate, app.FieldTime,
}

func fieldEvents(fields map[string]string) ([]app.Event, error) {
	known := make(map[string]bool, len(formFields))
	for _, f := range formFields {
		known[f] = true
	}

	events := make([]app.Event, 0, len(fields))
	for _, f := range formFields {
		if v, ok := fields[f]; ok {
			events = append(events, app.FieldChanged{Field: f, Value: v})
		}
	}
	for f := range fields {
		if !known[f] {
			return nil, &fieldError{field: f}
		}
	}
	return events, nil
}

// inputEvents turns the non-empty fields of a submitted record into
// reducer events.
func inputEvents(in domain.InputRecord) ([]app.Event, error) {
	var events []app.Event
	if in.Kind != "" {
		kind, err := domain.ParseKind(string(in.Kind))
		if err != nil {
			return nil, err
		}
		events = append(events, app.ModelSelected{Kind: kind})
	}

	values := map[string]string{
		app.FieldTransactionID: in.TransactionID,
		app.FieldAmount:        in.Amount,
		app.FieldMerchant:      in.MerchantCategory,
		app.FieldLocation:      in.Location,
		app.FieldUserID:        in.UserID,
		app.FieldSessionID:     in.SessionID,
		app.FieldDate:          in.Date,
		app.FieldTime:          in.Time,
	}
	for _, f := range formFields {
		if v := values[f]; v != "" {
			events = append(events, app.FieldChanged{Field: f, Value: v})
		}
	}
	return events, nil
}

type fieldError struct{ field string }

func (e *fieldError) Error() string { return "unknown form field " + e.field }
func (e *fieldError) Unwrap() error { return domain.ErrInvalidInput }

// decodeOptional decodes a JSON body when one was sent.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAnalysisInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrPredictionFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
