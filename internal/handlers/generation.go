package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/escalateai/api/internal/complaint"
	"github.com/escalateai/api/internal/generation"
	"github.com/escalateai/api/internal/middleware"
	"github.com/escalateai/api/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Generator produces drafts for a complaint. *generation.Service
// implements it.
type Generator interface {
	Generate(ctx context.Context, req *models.ComplaintRequest) (*models.GenerationResult, error)
}

// GenerationHandler handles complaint generation
type GenerationHandler struct {
	generator Generator
	logger    *zap.Logger
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(generator Generator, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{generator: generator, logger: logger}
}

// Generate turns a complaint description into ready-to-send drafts
//
// @Summary      Generate complaint drafts
// @Tags         generation
// @Accept       json
// @Produce      json
// @Param        request  body      models.ComplaintRequest  true  "Complaint"
// @Success      200      {object}  models.GenerationResult
// @Failure      422      {object}  middleware.APIError
// @Failure      503      {object}  middleware.APIError
// @Router       /generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req models.ComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ValidationFailed(c, decodeError(err))
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)

		var verr *complaint.ValidationError
		switch {
		case errors.As(err, &verr):
			middleware.ValidationFailed(c, verr)
		case errors.Is(err, generation.ErrGenerationUnavailable),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			middleware.GenerationUnavailable(c)
		default:
			h.logger.Error("generation failed unexpectedly",
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.Error(err),
			)
			middleware.InternalError(c, "internal error")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// decodeError turns a JSON decoding failure into field-level detail
func decodeError(err error) *complaint.ValidationError {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, io.EOF):
		return fieldError("body", "request body is required")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fieldError(typeErr.Field, "has the wrong type (got "+typeErr.Value+")")
	case errors.As(err, &syntaxErr):
		return fieldError("body", "malformed JSON")
	default:
		return fieldError("body", "invalid JSON body")
	}
}

func fieldError(field, msg string) *complaint.ValidationError {
	return &complaint.ValidationError{Fields: []complaint.FieldError{{Field: field, Message: msg}}}
}
