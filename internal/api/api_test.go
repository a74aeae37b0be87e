package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/fraudguard/internal/analysis"
	"github.com/opensource-finance/fraudguard/internal/app"
	"github.com/opensource-finance/fraudguard/internal/auth"
	"github.com/opensource-finance/fraudguard/internal/cache"
	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/predict"
	"github.com/opensource-finance/fraudguard/internal/session"
	"github.com/opensource-finance/fraudguard/internal/throttle"
	"github.com/opensource-finance/fraudguard/internal/verdict"
)

type fakePredictor struct {
	pred predict.Prediction
	err  error
}

func (f fakePredictor) Predict(context.Context, []float64) (predict.Prediction, error) {
	return f.pred, f.err
}

type testOptions struct {
	limit     int
	predictor Predictor
	bus       domain.EventBus
	repo      domain.Repository
}

// createTestServer wires a server over in-memory collaborators.
func createTestServer(t *testing.T, opts testOptions) *Server {
	t.Helper()

	lru := cache.NewLRUCache(1000)
	t.Cleanup(func() { lru.Close() })

	heuristic, err := verdict.NewDefaultHeuristic(2, nil, domain.DefaultAlertThreshold, nil)
	if err != nil {
		t.Fatalf("failed to build heuristic: %v", err)
	}

	if opts.predictor == nil {
		opts.predictor = fakePredictor{err: domain.ErrPredictionFailed}
	}

	return NewServer(domain.ServerConfig{Host: "localhost", Port: 8080}, Dependencies{
		Sessions:      session.NewManager(lru, time.Hour, nil),
		Authenticator: auth.DevAuthenticator{},
		Analyzer:      analysis.NewAnalyzer(heuristic, 0, nil),
		Throttle:      throttle.NewService(lru, opts.limit, time.Minute),
		Engine:        heuristic.Engine(),
		Predictor:     opts.predictor,
		Repository:    opts.repo,
		Cache:         lru,
		Bus:           opts.bus,
		Version:       "test-v1",
	})
}

func do(t *testing.T, s *Server, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(SessionIDHeader, sessionID)
	}

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	rr := do(t, s, http.MethodPost, "/sessions", "", LoginRequest{Credential: "Analyst@Example.com"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.SessionID
}

type listResponse struct {
	Records []domain.ResultRecord `json:"records"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t, testOptions{})

	rr := do(t, server, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	resp := decode[map[string]any](t, rr)
	if resp["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got '%v'", resp["status"])
	}
	if resp["version"] != "test-v1" {
		t.Errorf("expected version 'test-v1', got '%v'", resp["version"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	server := createTestServer(t, testOptions{})

	rr := do(t, server, http.MethodGet, "/ready", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	server := createTestServer(t, testOptions{})

	rr := do(t, server, http.MethodGet, "/catalog", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	resp := decode[CatalogResponse](t, rr)
	if len(resp.Kinds) != 2 || resp.Kinds[0].Label != "Transaction Input" {
		t.Errorf("unexpected kinds: %+v", resp.Kinds)
	}
	if len(resp.Locations) != 10 {
		t.Errorf("expected 10 locations, got %d", len(resp.Locations))
	}
	if len(resp.Merchants) != 12 {
		t.Errorf("expected 12 merchants, got %d", len(resp.Merchants))
	}
	if len(resp.Times) != 24 || resp.Times[23].Value != "23:00" {
		t.Errorf("unexpected times: %d entries", len(resp.Times))
	}
}

func TestLogin(t *testing.T) {
	server := createTestServer(t, testOptions{})

	t.Run("BodyCredential", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/sessions", "", LoginRequest{Credential: "Analyst@Example.com"})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
		resp := decode[LoginResponse](t, rr)
		if resp.SessionID == "" {
			t.Error("expected session id")
		}
		if resp.Profile.Email != "analyst@example.com" {
			t.Errorf("expected lower-cased email, got %q", resp.Profile.Email)
		}
	})

	t.Run("BearerHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
		req.Header.Set("Authorization", "Bearer analyst@example.com")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("Rejected", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/sessions", "", LoginRequest{Credential: "not-an-email"})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rr.Code)
		}
	})
}

func TestSessionRequired(t *testing.T) {
	server := createTestServer(t, testOptions{})

	rr := do(t, server, http.MethodGet, "/dashboard", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without session, got %d", rr.Code)
	}

	rr = do(t, server, http.MethodGet, "/dashboard", "unknown-session", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 for unknown session, got %d", rr.Code)
	}
}

func TestLogout(t *testing.T) {
	server := createTestServer(t, testOptions{})
	sid := login(t, server)

	rr := do(t, server, http.MethodDelete, "/sessions", sid, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}

	rr = do(t, server, http.MethodGet, "/dashboard", sid, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected session gone after logout, got %d", rr.Code)
	}
}

func TestAnalyzeTransaction(t *testing.T) {
	server := createTestServer(t, testOptions{})
	sid := login(t, server)

	t.Run("Fraud", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/analyses", sid, domain.InputRecord{
			Kind:             domain.KindTransaction,
			Amount:           "6000",
			MerchantCategory: "Online Retail",
			Location:         "mumbai",
			Date:             "2024-03-01",
			Time:             "23:30",
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		resp := decode[AnalyzeResponse](t, rr)
		rec := resp.Record
		if rec.ID != "TXN001" {
			t.Errorf("expected ID TXN001, got %s", rec.ID)
		}
		if rec.FraudStatus != domain.StatusFraud {
			t.Errorf("expected Fraud, got %s", rec.FraudStatus)
		}
		if rec.Probability != 0.9 {
			t.Errorf("expected probability 0.9, got %v", rec.Probability)
		}
		if rec.Location != "Mumbai, Maharashtra" {
			t.Errorf("expected display location, got %q", rec.Location)
		}
		if rec.Timestamp != "2024-03-01 23:30" {
			t.Errorf("unexpected timestamp %q", rec.Timestamp)
		}
		if resp.TraceID == "" {
			t.Error("expected trace id")
		}
	})

	t.Run("FormClearedAfterCompletion", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/dashboard", sid, nil)
		resp := decode[DashboardResponse](t, rr)
		if resp.Form.Amount != "" || resp.Form.Location != "" || resp.Form.Time != "" {
			t.Errorf("expected form cleared, got %+v", resp.Form)
		}
		if resp.Analyzing {
			t.Error("expected analysis finished")
		}
		if resp.Summary.Total != 1 || resp.Summary.Fraud != 1 {
			t.Errorf("unexpected summary %+v", resp.Summary)
		}
	})

	t.Run("Legitimate", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/analyses", sid, domain.InputRecord{
			Kind:     domain.KindTransaction,
			Amount:   "100",
			Location: "delhi",
			Time:     "10:00",
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
		rec := decode[AnalyzeResponse](t, rr).Record
		if rec.ID != "TXN002" || rec.FraudStatus != domain.StatusNotFraud {
			t.Errorf("unexpected record %s %s", rec.ID, rec.FraudStatus)
		}
		if rec.Probability != 0.3 {
			t.Errorf("expected probability 0.3, got %v", rec.Probability)
		}
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/analyses", sid, domain.InputRecord{
			Kind:   domain.KindTransaction,
			Amount: "lots",
		})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}

		dash := decode[DashboardResponse](t, do(t, server, http.MethodGet, "/dashboard", sid, nil))
		if dash.Analyzing {
			t.Error("expected failed analysis to leave analysing state")
		}
		if dash.LastError == "" {
			t.Error("expected last error recorded")
		}
		if dash.Summary.Total != 2 {
			t.Errorf("expected ledger unchanged, got %d records", dash.Summary.Total)
		}
	})

	t.Run("UnknownKind", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/analyses", sid, map[string]string{"kind": "crypto"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestAnalyzeBehaviorUnavailable(t *testing.T) {
	server := createTestServer(t, testOptions{})
	sid := login(t, server)

	rr := do(t, server, http.MethodPost, "/analyses", sid, domain.InputRecord{
		Kind:   domain.KindBehavior,
		UserID: "user-7",
	})
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAnalyzeRejectsConcurrentSubmission(t *testing.T) {
	server := createTestServer(t, testOptions{})
	sid := login(t, server)

	// Mark the session as mid-analysis.
	h := server.Handler()
	if _, err := h.sessions.Begin(context.Background(), sid); err != nil {
		t.Fatal(err)
	}

	rr := do(t, server, http.MethodPost, "/analyses", sid, domain.InputRecord{
		Kind:   domain.KindTransaction,
		Amount: "100",
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestAnalyzeThrottled(t *testing.T) {
	server := createTestServer(t, testOptions{limit: 1})
	sid := login(t, server)

	in := domain.InputRecord{Kind: domain.KindTransaction, Amount: "100"}
	if rr := do(t, server, http.MethodPost, "/analyses", sid, in); rr.Code != http.StatusCreated {
		t.Fatalf("expected first analysis allowed, got %d", rr.Code)
	}
	if rr := do(t, server, http.MethodPost, "/analyses", sid, in); rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rr.Code)
	}
}

func TestRejectedAnalysesDoNotCountAgainstThrottle(t *testing.T) {
	server := createTestServer(t, testOptions{limit: 1})
	sid := login(t, server)

	bad := domain.InputRecord{Kind: domain.KindTransaction, Amount: "lots"}
	if rr := do(t, server, http.MethodPost, "/analyses", sid, bad); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	h := server.Handler()
	if _, err := h.sessions.Begin(context.Background(), sid); err != nil {
		t.Fatal(err)
	}
	good := domain.InputRecord{Kind: domain.KindTransaction, Amount: "100"}
	if rr := do(t, server, http.MethodPost, "/analyses", sid, good); rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	if _, err := h.sessions.Dispatch(context.Background(), sid, app.AnalysisFailed{Err: domain.ErrModelUnavailable}); err != nil {
		t.Fatal(err)
	}

	if rr := do(t, server, http.MethodPost, "/analyses", sid, good); rr.Code != http.StatusCreated {
		t.Fatalf("expected the first valid analysis to be allowed, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := do(t, server, http.MethodPost, "/analyses", sid, good); rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rr.Code)
	}

	s, err := h.sessions.Get(context.Background(), sid)
	if err != nil {
		t.Fatal(err)
	}
	if s.State.Analyzing {
		t.Error("expected session to leave the analysing state after a throttled request")
	}
}

func TestDashboardSettings(t *testing.T) {
	server := createTestServer(t, testOptions{})
	sid := login(t, server)

	t.Run("SelectModel", func(t *testing.T) {
		rr := do(t, server, http.MethodPut, "/dashboard/model", sid, SelectModelRequest{Kind: "behavior"})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if kind := decode[DashboardResponse](t, rr).Kind; kind != domain.KindBehavior {
			t.Errorf("expected behavior, got %s", kind)
		}

		rr = do(t, server, http.MethodPut, "/dashboard/model", sid, SelectModelRequest{Kind: "other"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("UpdateForm", func(t *testing.T) {
		rr := do(t, server, http.MethodPut, "/dashboard/form", sid, map[string]string{"userId": "u-1", "time": "02:00"})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		form := decode[DashboardResponse](t, rr).Form
		if form.UserID != "u-1" || form.Time != "02:00" {
			t.Errorf("unexpected form %+v", form)
		}

		rr = do(t, server, http.MethodPut, "/dashboard/form", sid, map[string]string{"ssn": "x"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for unknown field, got %d", rr.Code)
		}
	})

	t.Run("SetFilters", func(t *testing.T) {
		rr := do(t, server, http.MethodPut, "/dashboard/filters", sid, FiltersRequest{Status: "fraud", Location: "mumbai"})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		resp := decode[DashboardResponse](t, rr)
		if resp.StatusFilter != "fraud" || resp.LocationFilter != "Mumbai" {
			t.Errorf("unexpected filters %q %q", resp.StatusFilter, resp.LocationFilter)
		}

		rr = do(t, server, http.MethodPut, "/dashboard/filters", sid, FiltersRequest{Status: "maybe"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestListAndGetAnalyses(t *testing.T) {
	server := createTestServer(t, testOptions{})
	sid := login(t, server)

	do(t, server, http.MethodPost, "/analyses", sid, domain.InputRecord{Kind: domain.KindTransaction, Amount: "9000", Location: "mumbai"})
	do(t, server, http.MethodPost, "/analyses", sid, domain.InputRecord{Kind: domain.KindTransaction, Amount: "50", Location: "delhi"})

	t.Run("AllRecords", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/analyses", sid, nil)
		resp := decode[listResponse](t, rr)
		if len(resp.Records) != 2 {
			t.Errorf("expected 2 records, got %d", len(resp.Records))
		}
	})

	t.Run("QueryFilters", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/analyses?location=Delhi", sid, nil)
		resp := decode[listResponse](t, rr)
		if len(resp.Records) != 1 || resp.Records[0].ID != "TXN002" {
			t.Errorf("expected only TXN002, got %+v", resp.Records)
		}

		rr = do(t, server, http.MethodGet, "/analyses?status=bogus", sid, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("GetOne", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/analyses/TXN001", sid, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if rec := decode[domain.ResultRecord](t, rr); rec.Amount != 9000 {
			t.Errorf("expected amount 9000, got %v", rec.Amount)
		}

		rr = do(t, server, http.MethodGet, "/analyses/TXN999", sid, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("Export", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/analyses/export", sid, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
			t.Errorf("expected text/csv, got %q", ct)
		}
		if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "transaction-analysis-results.csv") {
			t.Errorf("unexpected disposition %q", cd)
		}

		lines := strings.Split(rr.Body.String(), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[0], "ID,Type,Location") {
			t.Errorf("unexpected header %q", lines[0])
		}
		if !strings.HasPrefix(lines[1], "TXN001,") {
			t.Errorf("unexpected first row %q", lines[1])
		}
	})
}

func TestPredictEndpoint(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := createTestServer(t, testOptions{predictor: fakePredictor{pred: predict.Prediction{Label: predict.LabelFraud}}})
		sid := login(t, server)

		rr := do(t, server, http.MethodPost, "/predict", sid, PredictRequest{Features: []float64{1, 2, 3}})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		resp := decode[map[string]any](t, rr)
		if resp["isFraud"] != true {
			t.Errorf("expected isFraud true, got %v", resp["isFraud"])
		}
	})

	t.Run("Failure", func(t *testing.T) {
		server := createTestServer(t, testOptions{})
		sid := login(t, server)

		rr := do(t, server, http.MethodPost, "/predict", sid, PredictRequest{Features: []float64{1}})
		if rr.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rr.Code)
		}
		if body := strings.TrimSpace(rr.Body.String()); body != `{"error":"Prediction failed"}` {
			t.Errorf("unexpected body %s", body)
		}
	})

	t.Run("NoFeatures", func(t *testing.T) {
		server := createTestServer(t, testOptions{})
		sid := login(t, server)

		rr := do(t, server, http.MethodPost, "/predict", sid, PredictRequest{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestRulesEndpoints(t *testing.T) {
	server := createTestServer(t, testOptions{})
	sid := login(t, server)

	rr := do(t, server, http.MethodGet, "/rules", sid, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if count := decode[map[string]any](t, rr)["count"]; count != float64(2) {
		t.Errorf("expected 2 rules, got %v", count)
	}

	rr = do(t, server, http.MethodPost, "/rules/reload", sid, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 without a rules file, got %d", rr.Code)
	}
}

func TestValidateRuleEndpoint(t *testing.T) {
	server := createTestServer(t, testOptions{})
	sid := login(t, server)

	tests := []struct {
		name string
		rule map[string]any
		want int
	}{
		{"Bool", map[string]any{"id": "late", "expression": "hour >= 22"}, http.StatusOK},
		{"Double", map[string]any{"id": "big", "expression": "amount > 1000.0 ? 0.4 : 0.0"}, http.StatusOK},
		{"Syntax", map[string]any{"id": "broken", "expression": "amount >"}, http.StatusBadRequest},
		{"StringResult", map[string]any{"id": "str", "expression": "'fraud'"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, server, http.MethodPost, "/rules/validate", sid, tt.rule)
			if rr.Code != tt.want {
				t.Fatalf("expected status %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
			valid := decode[map[string]any](t, rr)["valid"]
			if valid != (tt.want == http.StatusOK) {
				t.Errorf("expected valid=%v, got %v", tt.want == http.StatusOK, valid)
			}
		})
	}

	rr := do(t, server, http.MethodGet, "/rules", sid, nil)
	if count := decode[map[string]any](t, rr)["count"]; count != float64(2) {
		t.Errorf("expected validation to leave 2 rules loaded, got %v", count)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrInvalidFilter, http.StatusBadRequest},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrSessionNotFound, http.StatusUnauthorized},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrAnalysisInProgress, http.StatusConflict},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrPredictionFailed, http.StatusBadGateway},
		{domain.ErrModelUnavailable, http.StatusServiceUnavailable},
		{context.Canceled, http.StatusServiceUnavailable},
		{&fieldError{field: "x"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	server := createTestServer(t, testOptions{})

	req := httptest.NewRequest(http.MethodOptions, "/analyses", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}
