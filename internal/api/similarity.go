package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/tandemml/tandem/internal/vecops"
)

type SimilarityRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
	Model string `json:"model,omitempty"`
	// Threshold overrides the server's duplicate threshold for this
	// request only.
	Threshold *float64 `json:"threshold,omitempty"`
}

type SimilarityResponse struct {
	ID         string  `json:"id"`
	Object     string  `json:"object"`
	Created    int64   `json:"created"`
	Model      string  `json:"model"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
	Duplicate  bool    `json:"duplicate"`
}

func (s *Server) handleSimilarity(c *echo.Context) error {
	req, err := decodeJSON[SimilarityRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if ok, err := s.checkModel(c, req.Model); !ok {
		return err
	}
	if req.TextA == "" || req.TextB == "" {
		return writeBadRequest(c, "text_a and text_b are required")
	}
	threshold := s.threshold
	if req.Threshold != nil {
		if *req.Threshold < -1 || *req.Threshold > 1 {
			return writeBadRequest(c, "threshold must be within [-1, 1]")
		}
		threshold = *req.Threshold
	}

	va, _, err := s.embed(req.TextA)
	if err != nil {
		return s.similarityError(c, err)
	}
	vb, _, err := s.embed(req.TextB)
	if err != nil {
		return s.similarityError(c, err)
	}
	sim, err := vecops.Cosine(va, vb)
	if err != nil {
		return s.similarityError(c, err)
	}

	return c.JSON(http.StatusOK, SimilarityResponse{
		ID:         "sim_" + uuid.NewString(),
		Object:     "similarity",
		Created:    s.clock().Unix(),
		Model:      s.name,
		Similarity: sim,
		Threshold:  threshold,
		Duplicate:  sim >= threshold,
	})
}

func (s *Server) similarityError(c *echo.Context, err error) error {
	if errors.Is(err, errEmptyInput) {
		return writeBadRequest(c, "text_a and text_b must produce at least one token")
	}
	s.log.Error("similarity failed", "error", err)
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
}
