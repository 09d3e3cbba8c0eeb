package v1

import (
	"errors"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIResponse wraps every successful body.
type APIResponse[T any] struct {
	Data T `json:"data"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Fields  []string          `json:"fields,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

// errorKinds maps each caller-facing error kind to its status and code.
// Order matters: the first match wins.
var errorKinds = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusBadRequest, "VALIDATION_FAILED"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrAccessDenied, http.StatusForbidden, "ACCESS_DENIED"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
}

// respondServiceError renders err by kind. Errors without a kind are never
// echoed to the caller.
func respondServiceError(c *gin.Context, err error) {
	var conflict *appointment.ConflictError
	if errors.As(err, &conflict) {
		resp := ErrorResponse{Error: appointment.ErrAppointmentConflict.Error(), Code: "SLOT_TAKEN"}
		if conflict.ExistingID != uuid.Nil {
			resp.Details = map[string]string{"existing_appointment_id": conflict.ExistingID.String()}
		}
		c.JSON(http.StatusConflict, resp)
		return
	}

	for _, k := range errorKinds {
		if !errors.Is(err, k.kind) {
			continue
		}
		resp := ErrorResponse{Error: err.Error(), Code: k.code}
		switch k.kind {
		case domain.ErrAccessDenied:
			resp.Error = "access denied"
		case domain.ErrValidation:
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				resp.Error, resp.Fields = "validation failed", ve.Fields
			}
		}
		c.JSON(k.status, resp)
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL"})
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error(), Code: "BAD_REQUEST"})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// parseQueryUUID returns nil when key is absent.
func parseQueryUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must be a valid UUID"})
		return nil, false
	}
	return &id, true
}

func actor(c *gin.Context) (domain.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authorization required"})
	}
	return a, ok
}
