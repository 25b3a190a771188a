package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"maintenance-service/internal/model"
	"maintenance-service/internal/notify"
	"maintenance-service/internal/policy"
	"maintenance-service/internal/repository"
)

const planningStatusScheduled = "scheduled"

type InterventionService struct {
	store    repository.Store
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewInterventionService(store repository.Store, notifier Notifier, log zerolog.Logger) *InterventionService {
	return &InterventionService{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "interventions").Logger(),
		now:      time.Now,
	}
}

type AssignInput struct {
	TicketID     uint64 `validate:"required"`
	TechnicianID uint64 `validate:"required"`
	ScheduledAt  *time.Time
	Title        *string `validate:"omitnil,max=255"`
	Description  *string
	Location     *string  `validate:"omitnil,max=255"`
	Latitude     *float64 `validate:"omitnil,gte=-90,lte=90"`
	Longitude    *float64 `validate:"omitnil,gte=-180,lte=180"`
}

// Assign creates an intervention for a ticket, moves the ticket to the
// technician and plans the visit when a schedule is given. Notifications go
// out only after the transaction commits.
func (s *InterventionService) Assign(ctx context.Context, principal model.Principal, in AssignInput) (*model.AssignmentRecord, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !policy.CanAssignTechnician(principal) {
		return nil, ErrPermissionDenied
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.store.Tickets().GetByID(ctx, in.TicketID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidInput("The selected ticket id is invalid.")
		}
		return nil, err
	}
	technician, err := s.technician(ctx, in.TechnicianID)
	if err != nil {
		return nil, err
	}

	status := model.InterventionStatusPending
	if in.ScheduledAt != nil {
		status = model.InterventionStatusScheduled
	}
	title := fmt.Sprintf("Intervention for Ticket #%d", in.TicketID)
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		title = strings.TrimSpace(*in.Title)
	}

	var assigned *model.Intervention
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		intervention := &model.Intervention{
			Title:        title,
			Description:  in.Description,
			Status:       status,
			ScheduledAt:  in.ScheduledAt,
			TicketID:     &in.TicketID,
			TechnicianID: technician.ID,
			Location:     in.Location,
			Latitude:     in.Latitude,
			Longitude:    in.Longitude,
		}
		if err := tx.Interventions().Create(ctx, intervention); err != nil {
			return fmt.Errorf("create intervention: %w", err)
		}

		ticket, err := tx.Tickets().GetByID(ctx, in.TicketID)
		if err != nil {
			return fmt.Errorf("load ticket %d: %w", in.TicketID, err)
		}
		if err := assignTicket(ctx, tx, ticket.ID, technician.ID, model.TicketStatusAssigned); err != nil {
			return err
		}

		if status == model.InterventionStatusScheduled {
			if err := tx.Plannings().Upsert(ctx, &model.Planning{
				InterventionID: intervention.ID,
				TechnicianID:   technician.ID,
				PlannedDate:    model.PlannedDateOf(*in.ScheduledAt),
				Status:         planningStatusScheduled,
			}); err != nil {
				return fmt.Errorf("upsert planning: %w", err)
			}
		}

		if err := tx.Interventions().LogStatusChange(ctx, &model.InterventionStatusLog{
			InterventionID: intervention.ID,
			NewStatus:      status,
			Note:           "assigned",
			ChangedBy:      &principal.UserID,
		}); err != nil {
			return fmt.Errorf("log status: %w", err)
		}

		loaded, err := tx.Interventions().GetByID(ctx, intervention.ID)
		if err != nil {
			return fmt.Errorf("reload intervention: %w", err)
		}
		if err := appendEvent(ctx, tx, model.EventInterventionAssigned, loaded.ID,
			notify.AssignmentRecipients(*loaded, ticket.Owner), newInterventionEvent(*loaded)); err != nil {
			return err
		}
		assigned = loaded
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).
			Uint64("ticket_id", in.TicketID).
			Uint64("technician_id", in.TechnicianID).
			Msg("assignment failed")
		return nil, assignmentFailed(err)
	}

	s.log.Info().
		Uint64("intervention_id", assigned.ID).
		Uint64("technician_id", assigned.TechnicianID).
		Uint64("ticket_id", in.TicketID).
		Msg("intervention assigned")

	s.notifier.InterventionAssigned(ctx, *assigned)

	record := &model.AssignmentRecord{
		ID:                  assigned.ID,
		TicketID:            assigned.TicketID,
		UserID:              assigned.TechnicianID,
		AssignedToUserID:    &technician.ID,
		Success:             true,
		AssignmentConfirmed: true,
		Intervention:        assigned,
	}
	if assigned.Ticket != nil {
		record.AssignedToUserID = assigned.Ticket.AssignedTo
	}
	name := technician.Name
	record.TechnicianName = &name
	return record, nil
}

// UpdateStatus applies a status change requested by an admin or the assigned
// technician and mirrors it on the ticket.
func (s *InterventionService) UpdateStatus(ctx context.Context, principal model.Principal, id uint64, status model.InterventionStatus) (*model.Intervention, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalidInput("The selected status is invalid.")
	}
	if !policy.CanOperateInterventions(principal) {
		return nil, ErrPermissionDenied
	}

	var (
		updated   *model.Intervention
		oldStatus model.InterventionStatus
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Interventions().GetForUpdate(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		if !policy.CanUpdateIntervention(principal, *current) {
			return ErrPermissionDenied
		}
		oldStatus = current.Status
		if err := CheckTransition(oldStatus, status); err != nil {
			return err
		}

		var completedAt *time.Time
		if status == model.InterventionStatusCompleted {
			now := s.now()
			completedAt = &now
		}
		if err := tx.Interventions().UpdateStatus(ctx, id, status, completedAt); err != nil {
			return fmt.Errorf("update intervention status: %w", err)
		}
		if current.TicketID != nil {
			if ticketStatus, ok := TicketStatusFor(status); ok {
				if err := tx.Tickets().UpdateStatus(ctx, *current.TicketID, ticketStatus); err != nil {
					return fmt.Errorf("sync ticket status: %w", err)
				}
			}
		}

		loaded, err := tx.Interventions().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload intervention: %w", err)
		}
		updated = loaded

		if oldStatus == status {
			return nil
		}
		if err := tx.Interventions().LogStatusChange(ctx, &model.InterventionStatusLog{
			InterventionID: id,
			OldStatus:      &oldStatus,
			NewStatus:      status,
			ChangedBy:      &principal.UserID,
		}); err != nil {
			return fmt.Errorf("log status: %w", err)
		}
		admins, err := adminRecipients(ctx, tx)
		if err != nil {
			return err
		}
		eventType := model.EventInterventionStatusChanged
		if status == model.InterventionStatusCompleted {
			eventType = model.EventInterventionCompleted
		}
		payload := newInterventionEvent(*loaded)
		payload.OldStatus = oldStatus
		return appendEvent(ctx, tx, eventType, id, notify.StatusChangeRecipients(admins, ownerIDOf(*loaded)), payload)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.InterventionStatusChanged(ctx, *updated, oldStatus)
	return updated, nil
}

type ReportInput struct {
	Report      string   `validate:"required"`
	WorkedHours *float64 `validate:"omitnil,gte=0"`
}

// SubmitReport completes the intervention regardless of its current status,
// closes the ticket and stores the technician's report.
func (s *InterventionService) SubmitReport(ctx context.Context, principal model.Principal, id uint64, in ReportInput) (*model.InterventionReport, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	in.Report = strings.TrimSpace(in.Report)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	text := in.Report
	if !policy.CanOperateInterventions(principal) {
		return nil, ErrPermissionDenied
	}

	current, err := s.store.Interventions().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !policy.CanUpdateIntervention(principal, *current) {
		return nil, ErrPermissionDenied
	}
	oldStatus := current.Status

	var report *model.InterventionReport
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		report = &model.InterventionReport{
			InterventionID: id,
			TechnicianID:   current.TechnicianID,
			Report:         text,
			Content:        text,
			WorkedHours:    in.WorkedHours,
			Status:         model.ReportStatusSubmitted,
		}
		if err := tx.Reports().Create(ctx, report); err != nil {
			return fmt.Errorf("create report: %w", err)
		}

		now := s.now()
		if err := tx.Interventions().UpdateStatus(ctx, id, model.InterventionStatusCompleted, &now); err != nil {
			return fmt.Errorf("complete intervention: %w", err)
		}
		if current.TicketID != nil {
			if err := tx.Tickets().UpdateStatus(ctx, *current.TicketID, model.TicketStatusClosed); err != nil {
				return fmt.Errorf("close ticket: %w", err)
			}
		}
		if err := tx.Interventions().LogStatusChange(ctx, &model.InterventionStatusLog{
			InterventionID: id,
			OldStatus:      &oldStatus,
			NewStatus:      model.InterventionStatusCompleted,
			Note:           "report submitted",
			ChangedBy:      &principal.UserID,
		}); err != nil {
			return fmt.Errorf("log status: %w", err)
		}

		loaded, err := tx.Interventions().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload intervention: %w", err)
		}
		report.Intervention = loaded

		admins, err := adminRecipients(ctx, tx)
		if err != nil {
			return err
		}
		payload := newInterventionEvent(*loaded)
		payload.OldStatus = oldStatus
		payload.ReportID = &report.ID
		return appendEvent(ctx, tx, model.EventInterventionCompleted, id, notify.StatusChangeRecipients(admins, ownerIDOf(*loaded)), payload)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.ReportSubmitted(ctx, *report.Intervention)
	return report, nil
}

func (s *InterventionService) Get(ctx context.Context, principal model.Principal, id uint64) (*model.Intervention, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	intervention, err := s.store.Interventions().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !policy.CanViewIntervention(principal, *intervention) {
		return nil, ErrPermissionDenied
	}
	return intervention, nil
}

type InterventionListOptions struct {
	Statuses []model.InterventionStatus
	TicketID *uint64
}

func (s *InterventionService) List(ctx context.Context, principal model.Principal, opts InterventionListOptions) ([]model.Intervention, error) {
	scope, ok := policy.ScopeFor(principal)
	if !ok {
		return nil, ErrUnauthenticated
	}
	for _, status := range opts.Statuses {
		if !status.Valid() {
			return nil, invalidInput("The selected status is invalid.")
		}
	}
	return s.store.Interventions().List(ctx, repository.InterventionFilter{
		Scope:    scope,
		Statuses: opts.Statuses,
		TicketID: opts.TicketID,
	})
}

// Calendar lists interventions scheduled inside the range, earliest first.
func (s *InterventionService) Calendar(ctx context.Context, principal model.Principal, rng model.DateRange) ([]model.Intervention, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !policy.CanOperateInterventions(principal) {
		return nil, ErrPermissionDenied
	}
	if rng.From != nil && rng.To != nil && rng.To.Before(*rng.From) {
		return nil, invalidInput("The end date must be a date after or equal to start date.")
	}
	scope, _ := policy.ScopeFor(principal)
	return s.store.Interventions().List(ctx, repository.InterventionFilter{
		Scope:         scope,
		ScheduledFrom: rng.From,
		ScheduledTo:   rng.To,
		Ascending:     true,
	})
}

type InterventionPatch struct {
	TechnicianID *uint64
	Title        *string `validate:"omitnil,min=1,max=255"`
	Description  *string
	ScheduledAt  *time.Time
	Location     *string  `validate:"omitnil,max=255"`
	Latitude     *float64 `validate:"omitnil,gte=-90,lte=90"`
	Longitude    *float64 `validate:"omitnil,gte=-180,lte=180"`
}

// Update edits descriptive fields. Reassigning or rescheduling keeps the
// ticket assignment and the planning row in step with the intervention.
func (s *InterventionService) Update(ctx context.Context, principal model.Principal, id uint64, patch InterventionPatch) (*model.Intervention, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	current, err := s.store.Interventions().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !policy.CanUpdateIntervention(principal, *current) {
		return nil, ErrPermissionDenied
	}
	if patch.TechnicianID != nil && !policy.CanAssignTechnician(principal) {
		return nil, ErrPermissionDenied
	}
	patch.Title = trimPtr(patch.Title)
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	reassigned := patch.TechnicianID != nil && *patch.TechnicianID != current.TechnicianID
	if reassigned {
		if _, err := s.technician(ctx, *patch.TechnicianID); err != nil {
			return nil, err
		}
	}

	changes := repository.InterventionChanges{
		Title:       patch.Title,
		Description: patch.Description,
		ScheduledAt: patch.ScheduledAt,
		Location:    patch.Location,
		Latitude:    patch.Latitude,
		Longitude:   patch.Longitude,
	}
	if reassigned {
		changes.TechnicianID = patch.TechnicianID
	}
	if changes.Empty() {
		return current, nil
	}

	var updated *model.Intervention
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Interventions().Update(ctx, id, changes); err != nil {
			return fmt.Errorf("update intervention: %w", err)
		}
		loaded, err := tx.Interventions().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload intervention: %w", err)
		}

		if reassigned && loaded.TicketID != nil {
			ticketStatus := model.TicketStatusAssigned
			if loaded.Ticket != nil && loaded.Ticket.Status != model.TicketStatusOpen {
				ticketStatus = loaded.Ticket.Status
			}
			if err := assignTicket(ctx, tx, *loaded.TicketID, loaded.TechnicianID, ticketStatus); err != nil {
				return err
			}
		}

		replan := (reassigned || changes.ScheduledAt != nil) && loaded.ScheduledAt != nil &&
			(loaded.Planning != nil || loaded.Status == model.InterventionStatusScheduled)
		if replan {
			planningStatus := planningStatusScheduled
			if loaded.Planning != nil && loaded.Planning.Status != "" {
				planningStatus = loaded.Planning.Status
			}
			if err := tx.Plannings().Upsert(ctx, &model.Planning{
				InterventionID: id,
				TechnicianID:   loaded.TechnicianID,
				PlannedDate:    model.PlannedDateOf(*loaded.ScheduledAt),
				Status:         planningStatus,
			}); err != nil {
				return fmt.Errorf("upsert planning: %w", err)
			}
		}

		if updated, err = tx.Interventions().GetByID(ctx, id); err != nil {
			return fmt.Errorf("reload intervention: %w", err)
		}
		if reassigned {
			var owner *model.User
			if updated.Ticket != nil {
				owner = updated.Ticket.Owner
			}
			return appendEvent(ctx, tx, model.EventInterventionAssigned, id,
				notify.AssignmentRecipients(*updated, owner), newInterventionEvent(*updated))
		}
		return nil
	})
	if err != nil {
		if reassigned {
			s.log.Error().Err(err).
				Uint64("intervention_id", id).
				Uint64("technician_id", *patch.TechnicianID).
				Msg("reassignment failed")
			return nil, assignmentFailed(err)
		}
		return nil, err
	}

	if reassigned {
		s.notifier.InterventionAssigned(ctx, *updated)
	}
	return updated, nil
}

func (s *InterventionService) Delete(ctx context.Context, principal model.Principal, id uint64) error {
	if err := requireAuthenticated(principal); err != nil {
		return err
	}
	if !policy.CanDeleteIntervention(principal) {
		return ErrPermissionDenied
	}
	return mapNotFound(s.store.Interventions().Delete(ctx, id))
}

type GenerateReportInput struct {
	InterventionID  uint64  `validate:"required"`
	Title           *string `validate:"omitnil,max=255"`
	Summary         string  `validate:"required"`
	Findings        *string
	Recommendations *string
}

// GenerateReport files an admin report for a completed intervention.
func (s *InterventionService) GenerateReport(ctx context.Context, principal model.Principal, in GenerateReportInput) (*model.InterventionReport, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !policy.IsAdmin(principal) {
		return nil, ErrPermissionDenied
	}
	in.Summary = strings.TrimSpace(in.Summary)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	summary := in.Summary

	intervention, err := s.store.Interventions().GetByID(ctx, in.InterventionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidInput("The selected intervention id is invalid.")
		}
		return nil, err
	}
	if intervention.Status != model.InterventionStatusCompleted {
		return nil, invalidInput("Report can only be generated for completed interventions.")
	}

	content := model.ReportContent{
		Title:           fmt.Sprintf("Report for Intervention #%d", intervention.ID),
		Summary:         summary,
		Findings:        in.Findings,
		Recommendations: in.Recommendations,
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		content.Title = strings.TrimSpace(*in.Title)
	}
	body, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}

	report := &model.InterventionReport{
		InterventionID: intervention.ID,
		TechnicianID:   intervention.TechnicianID,
		Report:         summary,
		Content:        string(body),
		Status:         model.ReportStatusSubmitted,
	}
	if err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Reports().Create(ctx, report)
	}); err != nil {
		return nil, err
	}
	return report, nil
}

type ReportPage struct {
	Reports []model.InterventionReport `json:"data"`
	Total   int64                      `json:"total"`
	PerPage int                        `json:"per_page"`
	Page    int                        `json:"current_page"`
}

func (s *InterventionService) ListReports(ctx context.Context, principal model.Principal, page, perPage int) (*ReportPage, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !policy.IsAdmin(principal) {
		return nil, ErrPermissionDenied
	}
	if perPage <= 0 {
		perPage = 15
	}
	if perPage > 100 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}
	reports, total, err := s.store.Reports().List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &ReportPage{Reports: reports, Total: total, PerPage: perPage, Page: page}, nil
}

func (s *InterventionService) technician(ctx context.Context, id uint64) (*model.User, error) {
	return technicianByID(ctx, s.store.Users(), id)
}

// technicianByID resolves id to a user holding the technician role.
func technicianByID(ctx context.Context, users repository.UserRepository, id uint64) (*model.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidTechnician()
		}
		return nil, err
	}
	if user.Role != model.RoleTechnician {
		return nil, invalidTechnician()
	}
	return user, nil
}

// assignTicket writes the ticket assignment and reads it back; a mismatch
// aborts the surrounding transaction.
func assignTicket(ctx context.Context, tx repository.Store, ticketID, technicianID uint64, status model.TicketStatus) error {
	if err := tx.Tickets().Assign(ctx, ticketID, technicianID, status); err != nil {
		return fmt.Errorf("assign ticket %d: %w", ticketID, err)
	}
	ticket, err := tx.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("reload ticket %d: %w", ticketID, err)
	}
	if !ticket.IsAssignedTo(technicianID) {
		return fmt.Errorf("ticket %d: assigned_to does not match technician %d: %w", ticketID, technicianID, ErrVerificationFailed)
	}
	return nil
}

func ownerIDOf(i model.Intervention) *uint64 {
	if owner, ok := i.OwnerID(); ok {
		return &owner
	}
	return nil
}
