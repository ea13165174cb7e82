package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
)

var errEmptyInput = errors.New("input produced no tokens")

// APIError is the error payload nested under "error" in responses,
// following the OpenAI envelope shape.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": APIError{
			Message: msg,
			Type:    errType,
			Param:   param,
			Code:    code,
		},
	})
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", "")
}

func writeModelNotFound(c *echo.Context, requested string) error {
	return writeError(c, http.StatusNotFound, "invalid_request_error",
		"model "+requested+" not found", "model", "model_not_found")
}
