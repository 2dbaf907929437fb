package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxnote/voxnote-backend/internal/services"
)

type ErrorEnvelope struct {
	Error string `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondError(c *gin.Context, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: msg})
}

// RespondServiceError maps the service error taxonomy onto HTTP statuses:
// validation -> 400, not found -> 404, everything else (provider and
// persistence failures) -> 500 with the message passed through.
func RespondServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, err)
	default:
		RespondError(c, http.StatusInternalServerError, err)
	}
}
