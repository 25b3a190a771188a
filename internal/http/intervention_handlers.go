package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"maintenance-service/internal/model"
	"maintenance-service/internal/service"
)

func (h *Handler) assignIntervention(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		TicketID    uint64   `json:"ticket_id" binding:"required"`
		UserID      uint64   `json:"user_id" binding:"required"`
		ScheduledAt *string  `json:"scheduled_at"`
		Title       *string  `json:"title" binding:"omitnil,max=255"`
		Description *string  `json:"description"`
		Location    *string  `json:"location" binding:"omitnil,max=255"`
		Latitude    *float64 `json:"latitude" binding:"omitnil,gte=-90,lte=90"`
		Longitude   *float64 `json:"longitude" binding:"omitnil,gte=-180,lte=180"`
	}
	if !h.bindJSON(c, &req) {
		return
	}
	scheduledAt, err := optionalTime(req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, codedError(service.CodeValidation, "The scheduled at is not a valid date."))
		return
	}

	record, err := h.interventions.Assign(c.Request.Context(), principal, service.AssignInput{
		TicketID:     req.TicketID,
		TechnicianID: req.UserID,
		ScheduledAt:  scheduledAt,
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(record))
}

func (h *Handler) listInterventions(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var opts service.InterventionListOptions
	for _, val := range splitCSV(c.Query("status")) {
		opts.Statuses = append(opts.Statuses, model.InterventionStatus(strings.ToLower(val)))
	}
	if raw := strings.TrimSpace(c.Query("ticket_id")); raw != "" {
		ticketID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid ticket_id"))
			return
		}
		opts.TicketID = &ticketID
	}

	interventions, err := h.interventions.List(c.Request.Context(), principal, opts)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": interventions}))
}

func (h *Handler) interventionCalendar(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	rng, err := queryRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid date range"))
		return
	}

	interventions, err := h.interventions.Calendar(c.Request.Context(), principal, rng)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": interventions}))
}

func (h *Handler) getIntervention(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "intervention")
	if !ok {
		return
	}

	intervention, err := h.interventions.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(intervention))
}

func (h *Handler) updateIntervention(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "intervention")
	if !ok {
		return
	}

	var req struct {
		UserID      *uint64  `json:"user_id"`
		ScheduledAt *string  `json:"scheduled_at"`
		Title       *string  `json:"title" binding:"omitnil,max=255"`
		Description *string  `json:"description"`
		Location    *string  `json:"location" binding:"omitnil,max=255"`
		Latitude    *float64 `json:"latitude" binding:"omitnil,gte=-90,lte=90"`
		Longitude   *float64 `json:"longitude" binding:"omitnil,gte=-180,lte=180"`
	}
	if !h.bindJSON(c, &req) {
		return
	}
	scheduledAt, err := optionalTime(req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, codedError(service.CodeValidation, "The scheduled at is not a valid date."))
		return
	}

	intervention, err := h.interventions.Update(c.Request.Context(), principal, id, service.InterventionPatch{
		TechnicianID: req.UserID,
		Title:        req.Title,
		Description:  req.Description,
		ScheduledAt:  scheduledAt,
		Location:     req.Location,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(intervention))
}

func (h *Handler) updateInterventionStatus(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "intervention")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	status := model.InterventionStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	intervention, err := h.interventions.UpdateStatus(c.Request.Context(), principal, id, status)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(intervention))
}

func (h *Handler) submitInterventionReport(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "intervention")
	if !ok {
		return
	}

	var req struct {
		Report      string   `json:"report" binding:"required"`
		WorkedHours *float64 `json:"worked_hours" binding:"omitnil,gte=0"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.interventions.SubmitReport(c.Request.Context(), principal, id, service.ReportInput{
		Report:      req.Report,
		WorkedHours: req.WorkedHours,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(report))
}

func (h *Handler) deleteIntervention(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "intervention")
	if !ok {
		return
	}

	if err := h.interventions.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"status": "deleted"}))
}

func (h *Handler) generateReport(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		InterventionID  uint64  `json:"intervention_id" binding:"required"`
		Title           *string `json:"title" binding:"omitnil,max=255"`
		Summary         string  `json:"summary" binding:"required"`
		Findings        *string `json:"findings"`
		Recommendations *string `json:"recommendations"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.interventions.GenerateReport(c.Request.Context(), principal, service.GenerateReportInput{
		InterventionID:  req.InterventionID,
		Title:           req.Title,
		Summary:         req.Summary,
		Findings:        req.Findings,
		Recommendations: req.Recommendations,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(report))
}

func (h *Handler) listReports(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	page, err := h.interventions.ListReports(c.Request.Context(), principal, queryInt(c, "page"), queryInt(c, "per_page"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
