// Package api serves the encoder over HTTP with OpenAI-compatible
// embeddings and similarity endpoints.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/tandemml/tandem/internal/cache"
	"github.com/tandemml/tandem/internal/logger"
	"github.com/tandemml/tandem/internal/model"
	"github.com/tandemml/tandem/internal/version"
	"github.com/tandemml/tandem/internal/vocab"
)

// DefaultThreshold is the similarity above which two inputs are
// reported as duplicates when the config does not set one.
const DefaultThreshold = 0.85

// Config carries the dependencies for a Server.
type Config struct {
	Model *model.Siamese
	Vocab *vocab.Vocab
	// ModelName is the public id, typically the container file stem.
	ModelName string
	// Threshold for the duplicate flag; 0 means DefaultThreshold.
	Threshold float64
	// Cache is optional; nil disables embedding reuse.
	Cache cache.Store
	Log   logger.Logger
}

type Server struct {
	model     *model.Siamese
	voc       *vocab.Vocab
	name      string
	threshold float64
	store     cache.Store
	log       logger.Logger
	clock     func() time.Time

	// Guards the cache's get-then-put sequence, not the model: the
	// forward pass only reads weights and is safe concurrently.
	mu sync.Mutex
}

func NewServer(cfg Config) *Server {
	name := cfg.ModelName
	if name == "" {
		name = "tandem"
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	log := cfg.Log
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		model:     cfg.Model,
		voc:       cfg.Vocab,
		name:      name,
		threshold: threshold,
		store:     cfg.Cache,
		log:       log.With("component", "api"),
		clock:     time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealthz)
	e.GET("/v1/model", s.handleModel)
	e.POST("/v1/embeddings", s.handleEmbeddings)
	e.POST("/v1/similarity", s.handleSimilarity)
}

func (s *Server) handleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.String(),
	})
}

// ModelResponse describes the loaded encoder, including its rendered
// layer tree.
type ModelResponse struct {
	ID          string `json:"id"`
	Object      string `json:"object"`
	OwnedBy     string `json:"owned_by"`
	Arch        string `json:"arch"`
	VocabSize   int    `json:"vocab_size"`
	EmbedDim    int    `json:"embed_dim"`
	HiddenDim   int    `json:"hidden_dim"`
	Fingerprint string `json:"fingerprint"`
	Layers      string `json:"layers"`
}

func (s *Server) handleModel(c *echo.Context) error {
	cfg := s.model.Config()
	return c.JSON(http.StatusOK, ModelResponse{
		ID:          s.name,
		Object:      "model",
		OwnedBy:     "local",
		Arch:        model.Arch,
		VocabSize:   cfg.VocabSize,
		EmbedDim:    cfg.EmbedDim,
		HiddenDim:   cfg.HiddenDim,
		Fingerprint: s.model.Fingerprint(),
		Layers:      s.model.Describe(),
	})
}

// embed tokenizes and encodes one input. The cache is consulted after
// tokenization so the returned token count stays accurate on hits.
func (s *Server) embed(text string) ([]float64, int, error) {
	ids := s.voc.Encode(text)
	if len(ids) == 0 {
		return nil, 0, errEmptyInput
	}

	key := cache.Key(s.model.Fingerprint(), text)
	if s.store != nil {
		s.mu.Lock()
		vec, ok, err := s.store.Get(key)
		s.mu.Unlock()
		if err != nil {
			s.log.Warn("cache get failed", "error", err)
		} else if ok {
			s.log.Debug("cache hit", "tokens", len(ids))
			return vec, len(ids), nil
		}
	}

	vec, err := s.model.Encode(ids)
	if err != nil {
		return nil, 0, err
	}

	if s.store != nil {
		s.mu.Lock()
		perr := s.store.Put(key, vec)
		s.mu.Unlock()
		if perr != nil {
			s.log.Warn("cache put failed", "error", perr)
		}
	}
	return vec, len(ids), nil
}

// checkModel rejects requests that name a model other than the loaded
// one. An empty model field means "whatever is loaded".
func (s *Server) checkModel(c *echo.Context, requested string) (bool, error) {
	if requested == "" || requested == s.name {
		return true, nil
	}
	return false, writeModelNotFound(c, requested)
}
