package http

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"maintenance-service/internal/http/middleware"
	"maintenance-service/internal/model"
	"maintenance-service/internal/service"
)

type Services struct {
	Interventions *service.InterventionService
	Tickets       *service.TicketService
	Plannings     *service.PlanningService
	Messages      *service.MessageService
	Users         *service.UserService
	Notifications *service.NotificationService
	Stats         *service.StatsService
}

type Handler struct {
	interventions *service.InterventionService
	tickets       *service.TicketService
	plannings     *service.PlanningService
	messages      *service.MessageService
	users         *service.UserService
	notifications *service.NotificationService
	stats         *service.StatsService
	health        func(ctx context.Context) error
	log           zerolog.Logger
}

// NewHandler wires the services. health may be nil.
func NewHandler(services Services, health func(ctx context.Context) error, log zerolog.Logger) *Handler {
	return &Handler{
		interventions: services.Interventions,
		tickets:       services.Tickets,
		plannings:     services.Plannings,
		messages:      services.Messages,
		users:         services.Users,
		notifications: services.Notifications,
		stats:         services.Stats,
		health:        health,
		log:           log,
	}
}

func (h *Handler) healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.log.Error().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var (
		svcErr    *service.Error
		fieldErrs validator.ValidationErrors
	)
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, codedError(service.CodeUnauthenticated, err.Error()))
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, codedError(service.CodeForbidden, err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, codedError(service.CodeNotFound, err.Error()))
	case errors.Is(err, service.ErrAssignmentFailed):
		h.log.Error().Err(err).Msg("assignment failed")
		c.JSON(http.StatusInternalServerError, codedError(service.CodeAssignmentFailed, "Failed to assign technician"))
	case errors.As(err, &svcErr):
		c.JSON(http.StatusUnprocessableEntity, codedError(svcErr.Code, svcErr.Message))
	case errors.As(err, &fieldErrs):
		failure := service.ValidationFailure(fieldErrs)
		c.JSON(http.StatusUnprocessableEntity, codedError(failure.Code, failure.Message))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, codedError(service.CodeValidation, err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

// bindJSON decodes the request body into dst. Broken binding rules are
// answered with 422 VALIDATION_ERROR, malformed JSON with 400.
func (h *Handler) bindJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		h.handleError(c, err)
		return false
	}
	c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	return false
}

var jsonFieldNamesOnce sync.Once

// useJSONFieldNames makes binding errors name fields as clients send them.
func useJSONFieldNames() {
	jsonFieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func principalOrAbort(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
	}
	return principal, ok
}

func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("invalid "+name+" id"))
		return 0, false
	}
	return id, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid "+name+" id"))
		return uuid.Nil, false
	}
	return id, true
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range timeLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func optionalTime(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	ts, err := parseTime(*value)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func queryRange(c *gin.Context) (model.DateRange, error) {
	var rng model.DateRange
	if from := strings.TrimSpace(c.Query("from")); from != "" {
		ts, err := parseTime(from)
		if err != nil {
			return rng, err
		}
		rng.From = &ts
	}
	if to := strings.TrimSpace(c.Query("to")); to != "" {
		ts, err := parseTime(to)
		if err != nil {
			return rng, err
		}
		rng.To = &ts
	}
	return rng, nil
}

func queryInt(c *gin.Context, name string) int {
	if raw := strings.TrimSpace(c.Query(name)); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return 0
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

type responseEnvelope struct {
	Data interface{} `json:"data"`
}

func successResponse(data interface{}) responseEnvelope {
	return responseEnvelope{Data: data}
}

func errorResponse(msg string) gin.H {
	return gin.H{"error": msg}
}

func codedError(code, msg string) gin.H {
	return gin.H{"error": msg, "code": code}
}
