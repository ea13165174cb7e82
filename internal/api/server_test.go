package api

import (
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/tandemml/tandem/internal/cache"
	"github.com/tandemml/tandem/internal/logger"
	"github.com/tandemml/tandem/internal/model"
	"github.com/tandemml/tandem/internal/vocab"
)

type testHarness struct {
	e     *echo.Echo
	srv   *Server
	store *cache.Memory
	voc   *vocab.Vocab
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	voc, err := vocab.New([]string{vocab.PadToken, vocab.UnkToken, "cats", "chase", "dogs", "the"})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}
	m, err := model.New(model.Config{VocabSize: voc.Size(), EmbedDim: 8, HiddenDim: 6, Seed: 7})
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	store := cache.NewMemory()
	srv := NewServer(Config{
		Model:     m,
		Vocab:     voc,
		ModelName: "test-model",
		Cache:     store,
		Log:       logger.Setup(io.Discard, "json", slog.LevelError),
	})
	e := echo.New()
	srv.Register(e)
	return &testHarness{e: e, srv: srv, store: store, voc: voc}
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	rec := doJSON(t, h.e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestModelEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	rec := doJSON(t, h.e, http.MethodGet, "/v1/model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ModelResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "test-model" || resp.Arch != model.Arch {
		t.Fatalf("unexpected model response: %+v", resp)
	}
	if resp.VocabSize != 6 || resp.HiddenDim != 6 {
		t.Fatalf("unexpected dims: %+v", resp)
	}
	if !strings.Contains(resp.Layers, "Parallel[") || !strings.Contains(resp.Layers, "LSTM(6)") {
		t.Fatalf("unexpected layer tree:\n%s", resp.Layers)
	}
}

func TestEmbeddingsSingleString(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	rec := doJSON(t, h.e, http.MethodPost, "/v1/embeddings", `{"input":"cats chase dogs"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp EmbeddingsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Object != "list" || resp.Model != "test-model" || len(resp.Data) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	vec := resp.Data[0].Embedding
	if len(vec) != 6 {
		t.Fatalf("embedding dim = %d, want 6", len(vec))
	}
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	if math.Abs(math.Sqrt(sumSq)-1) > 1e-9 {
		t.Fatalf("embedding not unit length: %v", math.Sqrt(sumSq))
	}
	if resp.Usage.PromptTokens != 3 {
		t.Fatalf("prompt_tokens = %d, want 3", resp.Usage.PromptTokens)
	}
}

func TestEmbeddingsArrayOrderAndCache(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)

	// Prime the cache with a recognizable vector so a hit is provable.
	canary := []float64{1, 0, 0, 0, 0, 0}
	key := cache.Key(h.srv.model.Fingerprint(), "cats")
	if err := h.store.Put(key, canary); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec := doJSON(t, h.e, http.MethodPost, "/v1/embeddings", `{"input":["cats","dogs"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp EmbeddingsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[0].Index != 0 || resp.Data[1].Index != 1 {
		t.Fatalf("unexpected data: %+v", resp.Data)
	}
	if resp.Data[0].Embedding[0] != 1 {
		t.Fatalf("cache was not consulted: %v", resp.Data[0].Embedding)
	}
	// Tokens are counted even for cached inputs.
	if resp.Usage.PromptTokens != 2 {
		t.Fatalf("prompt_tokens = %d, want 2", resp.Usage.PromptTokens)
	}

	// The miss must now be cached.
	if _, ok, _ := h.store.Get(cache.Key(h.srv.model.Fingerprint(), "dogs")); !ok {
		t.Fatal("computed embedding was not stored")
	}
}

func TestEmbeddingsValidation(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	cases := []struct {
		name string
		body string
		code int
		frag string
	}{
		{"missing input", `{}`, http.StatusBadRequest, "input is required"},
		{"empty array", `{"input":[]}`, http.StatusBadRequest, "must not be empty"},
		{"non-string element", `{"input":[42]}`, http.StatusBadRequest, "expected string"},
		{"bad format", `{"input":"x","encoding_format":"base64"}`, http.StatusBadRequest, "not supported"},
		{"unknown model", `{"input":"x","model":"gpt-4"}`, http.StatusNotFound, "model_not_found"},
		{"no tokens", `{"input":"!!!"}`, http.StatusBadRequest, "produced no tokens"},
		{"bad json", `{"input":`, http.StatusBadRequest, "invalid json"},
	}
	for _, tc := range cases {
		rec := doJSON(t, h.e, http.MethodPost, "/v1/embeddings", tc.body)
		if rec.Code != tc.code {
			t.Errorf("%s: status = %d, want %d (body %s)", tc.name, rec.Code, tc.code, rec.Body.String())
			continue
		}
		if !strings.Contains(rec.Body.String(), tc.frag) {
			t.Errorf("%s: body %s missing %q", tc.name, rec.Body.String(), tc.frag)
		}
	}
}

func TestSimilarityEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	rec := doJSON(t, h.e, http.MethodPost, "/v1/similarity",
		`{"text_a":"cats chase dogs","text_b":"cats chase dogs"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp SimilarityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "sim_") || resp.Object != "similarity" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if math.Abs(resp.Similarity-1) > 1e-9 {
		t.Fatalf("similarity of identical texts = %v, want 1", resp.Similarity)
	}
	if !resp.Duplicate || resp.Threshold != DefaultThreshold {
		t.Fatalf("unexpected duplicate verdict: %+v", resp)
	}

	rec = doJSON(t, h.e, http.MethodPost, "/v1/similarity",
		`{"text_a":"cats","text_b":"dogs"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Similarity < -1-1e-9 || resp.Similarity > 1+1e-9 {
		t.Fatalf("similarity out of range: %v", resp.Similarity)
	}
}

// TestSimilarityThresholdOverride checks that a per-request threshold
// replaces the server default in both the verdict and the echo of the
// threshold used.
func TestSimilarityThresholdOverride(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	rec := doJSON(t, h.e, http.MethodPost, "/v1/similarity",
		`{"text_a":"cats chase dogs","text_b":"cats chase dogs","threshold":-1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp SimilarityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Threshold != -1 || !resp.Duplicate {
		t.Fatalf("unexpected response with threshold -1: %+v", resp)
	}
}

func TestSimilarityValidation(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	cases := []struct {
		name string
		body string
		code int
		frag string
	}{
		{"missing text_b", `{"text_a":"x"}`, http.StatusBadRequest, "required"},
		{"unknown model", `{"text_a":"x","text_b":"y","model":"other"}`, http.StatusNotFound, "model_not_found"},
		{"no tokens", `{"text_a":"...","text_b":"dogs"}`, http.StatusBadRequest, "at least one token"},
		{"threshold out of range", `{"text_a":"cats","text_b":"dogs","threshold":1.5}`, http.StatusBadRequest, "threshold"},
	}
	for _, tc := range cases {
		rec := doJSON(t, h.e, http.MethodPost, "/v1/similarity", tc.body)
		if rec.Code != tc.code {
			t.Errorf("%s: status = %d, want %d (body %s)", tc.name, rec.Code, tc.code, rec.Body.String())
			continue
		}
		if !strings.Contains(rec.Body.String(), tc.frag) {
			t.Errorf("%s: body %s missing %q", tc.name, rec.Body.String(), tc.frag)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	e := echo.New()
	e.Use(RateLimit(0.01, 2))
	h.srv.Register(e)

	for i := 0; i < 2; i++ {
		if rec := doJSON(t, e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rate_limit_exceeded") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	e := echo.New()
	e.Use(RequestID())
	h.srv.Register(e)

	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "req-123" {
		t.Fatalf("request id = %q, want req-123", got)
	}
}
