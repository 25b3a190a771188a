package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"maintenance-service/internal/model"
	"maintenance-service/internal/service"
)

func (h *Handler) createTicket(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required,max=255"`
		Description string `json:"description" binding:"required"`
		Priority    string `json:"priority" binding:"required,oneof=low medium high urgent"`
		Category    string `json:"category" binding:"required,max=255"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	record, err := h.tickets.Create(c.Request.Context(), principal, service.TicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.TicketPriority(req.Priority),
		Category:    req.Category,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(record))
}

func (h *Handler) listTickets(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	opts := service.TicketListOptions{
		Search: c.Query("q"),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	for _, val := range splitCSV(c.Query("status")) {
		opts.Statuses = append(opts.Statuses, model.TicketStatus(strings.ToLower(val)))
	}
	if raw := strings.TrimSpace(c.Query("priority")); raw != "" {
		priority := model.TicketPriority(strings.ToLower(raw))
		opts.Priority = &priority
	}

	records, err := h.tickets.List(c.Request.Context(), principal, opts)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": records}))
}

func (h *Handler) getTicket(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "ticket")
	if !ok {
		return
	}

	record, err := h.tickets.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(record))
}

func (h *Handler) updateTicket(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "ticket")
	if !ok {
		return
	}

	var req struct {
		Title              *string         `json:"title" binding:"omitnil,max=255"`
		Description        *string         `json:"description"`
		Priority           *string         `json:"priority" binding:"omitnil,oneof=low medium high urgent"`
		Status             *string         `json:"status"`
		AssignedTo         json.RawMessage `json:"assigned_to"`
		CancellationReason *string         `json:"cancellation_reason"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	patch := service.TicketPatch{
		Title:              req.Title,
		Description:        req.Description,
		CancellationReason: req.CancellationReason,
	}
	if req.Priority != nil {
		priority := model.TicketPriority(strings.ToLower(strings.TrimSpace(*req.Priority)))
		patch.Priority = &priority
	}
	if req.Status != nil {
		status := model.TicketStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		patch.Status = &status
	}
	switch {
	case len(req.AssignedTo) == 0:
	case bytes.Equal(bytes.TrimSpace(req.AssignedTo), []byte("null")):
		patch.ClearAssignee = true
	default:
		var assignee uint64
		if err := json.Unmarshal(req.AssignedTo, &assignee); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid assigned_to"))
			return
		}
		patch.AssignedTo = &assignee
	}

	record, err := h.tickets.Update(c.Request.Context(), principal, id, patch)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(record))
}

func (h *Handler) updateTicketStatus(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "ticket")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	status := model.TicketStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	record, err := h.tickets.UpdateStatus(c.Request.Context(), principal, id, status)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(record))
}

func (h *Handler) deleteTicket(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "ticket")
	if !ok {
		return
	}

	if err := h.tickets.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"status": "deleted"}))
}

func (h *Handler) addTicketComment(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "ticket")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	comment, err := h.tickets.AddComment(c.Request.Context(), principal, id, req.Content)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(comment))
}

func (h *Handler) listTicketComments(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "ticket")
	if !ok {
		return
	}

	comments, err := h.tickets.ListComments(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": comments}))
}

func (h *Handler) deleteComment(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "comment")
	if !ok {
		return
	}

	if err := h.tickets.DeleteComment(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"status": "deleted"}))
}
