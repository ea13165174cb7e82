package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v5"
)

// EmbeddingsRequest mirrors the OpenAI embeddings request. Input is a
// string or an array of strings.
type EmbeddingsRequest struct {
	Input          any    `json:"input"`
	Model          string `json:"model,omitempty"`
	EncodingFormat string `json:"encoding_format,omitempty"`
	User           string `json:"user,omitempty"`
}

type Embedding struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type EmbeddingsResponse struct {
	Object string      `json:"object"`
	Data   []Embedding `json:"data"`
	Model  string      `json:"model"`
	Usage  Usage       `json:"usage"`
}

func (s *Server) handleEmbeddings(c *echo.Context) error {
	req, err := decodeJSON[EmbeddingsRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if ok, err := s.checkModel(c, req.Model); !ok {
		return err
	}
	if req.EncodingFormat != "" && req.EncodingFormat != "float" {
		return writeError(c, http.StatusBadRequest, "invalid_request_error",
			fmt.Sprintf("encoding_format %q is not supported", req.EncodingFormat), "encoding_format", "")
	}

	inputs, err := normalizeInput(req.Input)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	data := make([]Embedding, 0, len(inputs))
	tokens := 0
	for i, text := range inputs {
		vec, n, err := s.embed(text)
		if errors.Is(err, errEmptyInput) {
			return writeError(c, http.StatusBadRequest, "invalid_request_error",
				fmt.Sprintf("input[%d] produced no tokens", i), "input", "")
		}
		if err != nil {
			s.log.Error("encode failed", "index", i, "error", err)
			return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
		}
		tokens += n
		data = append(data, Embedding{Object: "embedding", Index: i, Embedding: vec})
	}

	return c.JSON(http.StatusOK, EmbeddingsResponse{
		Object: "list",
		Data:   data,
		Model:  s.name,
		Usage:  Usage{PromptTokens: tokens, TotalTokens: tokens},
	})
}
