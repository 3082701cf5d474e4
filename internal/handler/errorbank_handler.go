package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opopir/opopir-backend/internal/middleware"
	"github.com/opopir/opopir-backend/internal/response"
	"github.com/opopir/opopir-backend/internal/service"
)

// ErrorBankHandler serves the caller's unresolved error bank.
type ErrorBankHandler struct {
	errorBankService *service.ErrorBankService
}

// NewErrorBankHandler creates a new ErrorBankHandler.
func NewErrorBankHandler(errorBankService *service.ErrorBankService) *ErrorBankHandler {
	return &ErrorBankHandler{errorBankService: errorBankService}
}

// GetErrors godoc
// GET /api/v1/errors
// Lists the caller's unresolved error-bank entries with their questions.
func (h *ErrorBankHandler) GetErrors(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	entries, err := h.errorBankService.ListActive(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if entries == nil {
		entries = []service.ActiveEntry{}
	}

	response.Success(c, http.StatusOK, gin.H{"errors": entries})
}
