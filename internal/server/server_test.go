package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"wayfarer/internal/adaptation"
	"wayfarer/internal/config"
	"wayfarer/internal/domain"
	"wayfarer/internal/library"
	"wayfarer/internal/observability"
	"wayfarer/internal/weather"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	noon  = time.Date(2026, 6, 3, 14, 30, 0, 0, time.UTC)
	abbey = domain.Coordinate{Latitude: 51.4994, Longitude: -0.1273}
)

const abbeyText = "The abbey was founded by Benedictine monks more than a thousand years ago. " +
	"Kings and queens have been crowned beneath its vaulted roof since 1066. " +
	"However, a fire in the old dormitory nearly destroyed the library. " +
	"The monks decided to construct a new cloister in order to protect their books. " +
	"Work commenced in spring and took approximately ten years to finish. " +
	"Numerous poets and scientists are buried or remembered inside the nave. " +
	"The oldest door in the country still hangs in a passage near the chapter house. " +
	"Visitors once believed that touching it would bring good fortune. " +
	"Furthermore, the abbey gardens are among the oldest still in use. " +
	"Today the bells ring out over the square as they have for centuries."

type fixture struct {
	srv     *Server
	store   *library.Store
	handler http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := library.NewStore(nil)
	_, err := store.Add(domain.NewStoryContent("abbey", "The Abbey", abbeyText,
		domain.ContentMetadata{Type: domain.ContentHistorical, Themes: []string{"outdoor"}},
		&domain.Geofence{Center: abbey, Radius: 200}))
	require.NoError(t, err)
	_, err = store.Add(domain.NewStoryContent("gallery", "The Gallery", abbeyText,
		domain.ContentMetadata{Type: domain.ContentCultural, Themes: []string{"indoor"}}, nil))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	clock := func() time.Time { return noon }
	sunny := weather.ProviderFunc(func(context.Context, domain.Coordinate) (domain.WeatherData, error) {
		return domain.DefaultWeather(noon), nil
	})
	engine, err := adaptation.New(store, sunny, store,
		adaptation.WithClock(clock),
		adaptation.WithRegisterer(reg),
	)
	require.NoError(t, err)

	cfg := config.Default().Server
	cfg.Mode = "test"
	srv := New(engine, store, cfg, WithGatherer(reg), WithClock(clock))
	return fixture{srv: srv, store: store, handler: srv.Handler()}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.True(t, envelope.Success, envelope.Error)
	var out T
	require.NoError(t, json.Unmarshal(envelope.Data, &out))
	return out
}

func walkingAtAbbey() ContextRequest {
	return ContextRequest{
		Latitude:  abbey.Latitude,
		Longitude: abbey.Longitude,
		Movement:  MovementRequest{Mode: domain.MovementWalking, AverageSpeed: 3, Confidence: 0.9},
	}
}

func drivingAtAbbey() ContextRequest {
	return ContextRequest{
		Latitude:  abbey.Latitude,
		Longitude: abbey.Longitude,
		Movement:  MovementRequest{Mode: domain.MovementDriving, AverageSpeed: 60, Confidence: 0.9},
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Stories)
}

func TestContextEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/context", drivingAtAbbey())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[ContextResponse](t, rec)
	assert.Equal(t, domain.MovementDriving, got.Environment.Movement.Mode)
	assert.Equal(t, got.Environment.Hash(), got.Hash)
	assert.True(t, got.Environment.WeatherResolved)
	assert.NotEmpty(t, got.Insights.PrimaryContext)
}

func TestContextValidation(t *testing.T) {
	f := newFixture(t)

	bad := drivingAtAbbey()
	bad.Latitude = 123
	rec := f.do(t, http.MethodPost, "/api/context", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid location")

	bad = drivingAtAbbey()
	bad.Movement.Mode = "flying"
	rec = f.do(t, http.MethodPost, "/api/context", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/context", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/context", strings.NewReader("lat=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestAdaptEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/adapt", AdaptRequest{ContentID: "abbey", Context: drivingAtAbbey()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	adapted := decode[domain.AdaptedContent](t, rec)
	assert.Equal(t, "abbey", adapted.ContentID)
	assert.Equal(t, domain.FormatAudio, adapted.Format)
	assert.NotEmpty(t, adapted.AudioScript)

	rec = f.do(t, http.MethodPost, "/api/adapt", AdaptRequest{ContentID: "missing", Context: drivingAtAbbey()})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/adapt", AdaptRequest{Context: drivingAtAbbey()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/metrics/adaptation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	metrics := decode[domain.AdaptationMetrics](t, rec)
	assert.Equal(t, int64(1), metrics.TotalAdaptations)
}

func TestRecommendEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/recommend", RecommendRequest{Context: walkingAtAbbey()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	recs := decode[[]domain.ContentRecommendation](t, rec)
	require.NotEmpty(t, recs)
	assert.Equal(t, "abbey", recs[0].Content.ID)

	one := 1
	rec = f.do(t, http.MethodPost, "/api/recommend", RecommendRequest{Context: walkingAtAbbey(), MaxResults: &one})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.ContentRecommendation](t, rec), 1)
}

func TestStoriesCRUD(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/stories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]StorySummary](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "abbey", list[0].ID)
	assert.True(t, list[0].HasGeofence)

	rec = f.do(t, http.MethodPost, "/api/stories", StoryRequest{
		Title:    "Market Day",
		Text:     "Traders have gathered here every Thursday since the charter was granted.",
		Metadata: domain.ContentMetadata{Type: domain.ContentCultural},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[StorySummary](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/stories/"+created.ID, rec.Header().Get("Location"))
	assert.Equal(t, 11, created.Words)

	rec = f.do(t, http.MethodPost, "/api/stories", StoryRequest{ID: "abbey", Text: "Again.", Metadata: domain.ContentMetadata{Type: domain.ContentHistorical}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/stories", StoryRequest{Title: "Empty", Metadata: domain.ContentMetadata{Type: domain.ContentCultural}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/stories/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Market Day")

	rec = f.do(t, http.MethodDelete, "/api/stories/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/stories/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/stories/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetClearsMetrics(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/adapt", AdaptRequest{ContentID: "abbey", Context: walkingAtAbbey()})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/reset", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	metrics := decode[domain.AdaptationMetrics](t, f.do(t, http.MethodGet, "/api/metrics/adaptation", nil))
	assert.Zero(t, metrics.TotalAdaptations)

	summary := decode[StorySummary](t, f.do(t, http.MethodGet, "/api/stories/abbey", nil))
	assert.Zero(t, summary.Adaptations)
}

// requestIDEngine records the request id the engine sees.
type requestIDEngine struct {
	Engine
	seen string
}

func (e *requestIDEngine) AnalyzeContext(ctx context.Context, sample domain.LocationSample, movement domain.MovementAnalysis, reading *domain.WeatherData) domain.ContextualEnvironment {
	e.seen = observability.RequestIDFromContext(ctx)
	return e.Engine.AnalyzeContext(ctx, sample, movement, reading)
}

func TestRequestIDReachesEngine(t *testing.T) {
	f := newFixture(t)
	engine := &requestIDEngine{Engine: f.srv.engine}
	handler := New(engine, f.store, f.srv.cfg, WithGatherer(prometheus.NewRegistry())).Handler()

	post := func(id string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(walkingAtAbbey()))
		req := httptest.NewRequest(http.MethodPost, "/api/context", &buf)
		req.Header.Set("Content-Type", "application/json")
		if id != "" {
			req.Header.Set("X-Request-ID", id)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return rec
	}

	rec := post("walk-42")
	assert.Equal(t, "walk-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "walk-42", engine.seen)

	rec = post("")
	minted := rec.Header().Get("X-Request-ID")
	_, err := uuid.Parse(minted)
	require.NoError(t, err)
	assert.Equal(t, minted, engine.seen)
}

func TestPrometheusEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/adapt", AdaptRequest{ContentID: "abbey", Context: walkingAtAbbey()})

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wayfarer_adaptation_total")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/adapt", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.srv.cfg.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
