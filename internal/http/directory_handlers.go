package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"maintenance-service/internal/model"
	"maintenance-service/internal/service"
)

func (h *Handler) listPlannings(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	rng, err := queryRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid date range"))
		return
	}

	plannings, err := h.plannings.List(c.Request.Context(), principal, service.PlanningListOptions{
		Range:  rng,
		Status: strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": plannings}))
}

func (h *Handler) myPlanning(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	plannings, err := h.plannings.Mine(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": plannings}))
}

func (h *Handler) getPlanning(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "planning")
	if !ok {
		return
	}

	planning, err := h.plannings.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(planning))
}

// submitMessage is the public contact form.
func (h *Handler) submitMessage(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required,max=255"`
		Email   string `json:"email" binding:"required,max=255,email"`
		Subject string `json:"subject" binding:"required,max=255"`
		Message string `json:"message" binding:"required"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	message, err := h.messages.Submit(c.Request.Context(), service.MessageInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Message,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(message))
}

func (h *Handler) listMessages(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	messages, err := h.messages.List(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": messages}))
}

func (h *Handler) markMessageRead(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "message")
	if !ok {
		return
	}

	message, err := h.messages.MarkRead(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(message))
}

func (h *Handler) createUser(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		Name     string `json:"name" binding:"required,max=255"`
		Email    string `json:"email" binding:"required,max=255,email"`
		Phone    string `json:"phone" binding:"max=32"`
		Role     string `json:"role" binding:"required,oneof=admin technician client"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.Create(c.Request.Context(), principal, service.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     model.Role(req.Role),
		Password: req.Password,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(user))
}

func (h *Handler) listUsers(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var role *model.Role
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		parsed, err := model.ParseRole(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid role"))
			return
		}
		role = &parsed
	}

	users, err := h.users.List(c.Request.Context(), principal, role)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": users}))
}

func (h *Handler) listTechnicians(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	role := model.RoleTechnician
	users, err := h.users.List(c.Request.Context(), principal, &role)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": users}))
}

func (h *Handler) getUser(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "user")
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(user))
}

func (h *Handler) interventionPlanning(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "intervention")
	if !ok {
		return
	}

	planning, err := h.plannings.ForIntervention(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(planning))
}

func (h *Handler) updateUser(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "user")
	if !ok {
		return
	}

	var req struct {
		Name  *string `json:"name" binding:"omitnil,min=1,max=255"`
		Email *string `json:"email" binding:"omitnil,max=255,email"`
		Phone *string `json:"phone" binding:"omitnil,max=32"`
		Role  *string `json:"role" binding:"omitnil,oneof=admin technician client"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	patch := service.UserPatch{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		patch.Role = &role
	}

	user, err := h.users.Update(c.Request.Context(), principal, id, patch)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "user")
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"status": "deleted"}))
}

func (h *Handler) getProfile(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), principal, principal.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(user))
}

func (h *Handler) updateProfile(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		Name  *string `json:"name" binding:"omitnil,min=1,max=255"`
		Email *string `json:"email" binding:"omitnil,max=255,email"`
		Phone *string `json:"phone" binding:"omitnil,max=32"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), principal, service.ProfilePatch{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(user))
}

func (h *Handler) changePassword(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword         string `json:"current_password" binding:"required"`
		NewPassword             string `json:"new_password" binding:"required,min=8"`
		NewPasswordConfirmation string `json:"new_password_confirmation" binding:"required,eqfield=NewPassword"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), principal, service.PasswordChange{
		CurrentPassword:         req.CurrentPassword,
		NewPassword:             req.NewPassword,
		NewPasswordConfirmation: req.NewPasswordConfirmation,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"status": "password changed"}))
}

func (h *Handler) adminStats(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	dashboard, err := h.stats.Dashboard(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
