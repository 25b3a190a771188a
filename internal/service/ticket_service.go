package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"maintenance-service/internal/model"
	"maintenance-service/internal/notify"
	"maintenance-service/internal/policy"
	"maintenance-service/internal/repository"
)

type TicketService struct {
	store    repository.Store
	notifier Notifier
	log      zerolog.Logger
}

func NewTicketService(store repository.Store, notifier Notifier, log zerolog.Logger) *TicketService {
	return &TicketService{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "tickets").Logger(),
	}
}

type TicketInput struct {
	Title       string               `validate:"required,max=255"`
	Description string               `validate:"required"`
	Priority    model.TicketPriority `validate:"oneof=low medium high urgent"`
	Category    string               `validate:"required,max=255"`
}

func (s *TicketService) Create(ctx context.Context, principal model.Principal, in TicketInput) (*model.TicketRecord, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var created *model.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket := &model.Ticket{
			UserID:      principal.UserID,
			Title:       in.Title,
			Description: in.Description,
			Priority:    in.Priority,
			Status:      model.TicketStatusOpen,
			Category:    in.Category,
		}
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
		loaded, err := tx.Tickets().GetByID(ctx, ticket.ID)
		if err != nil {
			return fmt.Errorf("reload ticket: %w", err)
		}
		created = loaded

		admins, err := adminRecipients(ctx, tx)
		if err != nil {
			return err
		}
		return appendEvent(ctx, tx, model.EventTicketCreated, ticket.ID, notify.AdminRecipients(admins), ticketEvent{
			TicketID: ticket.ID,
			OwnerID:  ticket.UserID,
			Status:   ticket.Status,
			Priority: ticket.Priority,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NewTicket(ctx, *created)
	record := model.NewTicketRecord(*created)
	return &record, nil
}

func (s *TicketService) Get(ctx context.Context, principal model.Principal, id uint64) (*model.TicketRecord, error) {
	ticket, err := s.viewable(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	record := model.NewTicketRecord(*ticket)
	return &record, nil
}

type TicketListOptions struct {
	Statuses []model.TicketStatus
	Priority *model.TicketPriority
	Search   string
	Limit    int
	Offset   int
}

func (s *TicketService) List(ctx context.Context, principal model.Principal, opts TicketListOptions) ([]model.TicketRecord, error) {
	scope, ok := policy.ScopeFor(principal)
	if !ok {
		return nil, ErrUnauthenticated
	}
	for _, status := range opts.Statuses {
		if !status.Valid() {
			return nil, invalidInput("The selected status is invalid.")
		}
	}
	if opts.Priority != nil && !opts.Priority.Valid() {
		return nil, invalidInput("The selected priority is invalid.")
	}

	tickets, err := s.store.Tickets().List(ctx, repository.TicketFilter{
		Scope:    scope,
		Statuses: opts.Statuses,
		Priority: opts.Priority,
		Search:   strings.TrimSpace(opts.Search),
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
	if err != nil {
		return nil, err
	}
	records := make([]model.TicketRecord, 0, len(tickets))
	for _, t := range tickets {
		records = append(records, model.NewTicketRecord(t))
	}
	return records, nil
}

type TicketPatch struct {
	Title              *string               `validate:"omitnil,min=1,max=255"`
	Description        *string               `validate:"omitnil,min=1"`
	Priority           *model.TicketPriority `validate:"omitnil,oneof=low medium high urgent"`
	Status             *model.TicketStatus   `validate:"omitnil,oneof=open in_progress resolved closed cancelled"`
	AssignedTo         *uint64
	ClearAssignee      bool
	CancellationReason *string
}

// Update patches a ticket. A patched assignee is verified by reading the row
// back inside the transaction.
func (s *TicketService) Update(ctx context.Context, principal model.Principal, id uint64, patch TicketPatch) (*model.TicketRecord, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !policy.CanUpdateTicket(principal, *ticket) {
		return nil, ErrPermissionDenied
	}

	patch.Title = trimPtr(patch.Title)
	patch.Description = trimPtr(patch.Description)
	if err := validateInput(patch); err != nil {
		return nil, err
	}
	if patch.AssignedTo != nil {
		if _, err := technicianByID(ctx, s.store.Users(), *patch.AssignedTo); err != nil {
			return nil, err
		}
	}

	changes := repository.TicketChanges{
		Title:              patch.Title,
		Description:        patch.Description,
		Priority:           patch.Priority,
		Status:             patch.Status,
		AssignedTo:         patch.AssignedTo,
		ClearAssignee:      patch.ClearAssignee && patch.AssignedTo == nil,
		CancellationReason: patch.CancellationReason,
	}
	if changes.Empty() {
		record := model.NewTicketRecord(*ticket)
		return &record, nil
	}

	var updated *model.Ticket
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Update(ctx, id, changes); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		loaded, err := tx.Tickets().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload ticket: %w", err)
		}
		switch {
		case changes.AssignedTo != nil && !loaded.IsAssignedTo(*changes.AssignedTo):
			return fmt.Errorf("ticket %d: assigned_to was not persisted: %w", id, ErrVerificationFailed)
		case changes.ClearAssignee && loaded.AssignedTo != nil:
			return fmt.Errorf("ticket %d: assigned_to was not cleared: %w", id, ErrVerificationFailed)
		}
		updated = loaded
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVerificationFailed) {
			s.log.Error().Err(err).Uint64("ticket_id", id).Msg("ticket assignment failed")
			return nil, assignmentFailed(err)
		}
		return nil, err
	}
	record := model.NewTicketRecord(*updated)
	return &record, nil
}

// UpdateStatus sets the ticket status. Cancelling a ticket cancels every
// intervention of it that is not finished yet.
func (s *TicketService) UpdateStatus(ctx context.Context, principal model.Principal, id uint64, status model.TicketStatus) (*model.TicketRecord, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalidInput("The selected status is invalid.")
	}
	ticket, err := s.viewable(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	var (
		updated   *model.Ticket
		cancelled []model.Intervention
	)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().UpdateStatus(ctx, id, status); err != nil {
			return fmt.Errorf("update ticket status: %w", err)
		}

		if status == model.TicketStatusCancelled {
			interventions, err := tx.Interventions().List(ctx, repository.InterventionFilter{
				Scope:    model.Scope{Type: model.ScopeAll},
				TicketID: &id,
			})
			if err != nil {
				return fmt.Errorf("load interventions: %w", err)
			}
			for _, i := range interventions {
				if i.Status.Terminal() {
					continue
				}
				if err := tx.Interventions().UpdateStatus(ctx, i.ID, model.InterventionStatusCancelled, nil); err != nil {
					return fmt.Errorf("cancel intervention %d: %w", i.ID, err)
				}
				old := i.Status
				if err := tx.Interventions().LogStatusChange(ctx, &model.InterventionStatusLog{
					InterventionID: i.ID,
					OldStatus:      &old,
					NewStatus:      model.InterventionStatusCancelled,
					Note:           "ticket cancelled",
					ChangedBy:      &principal.UserID,
				}); err != nil {
					return fmt.Errorf("log status: %w", err)
				}
				i.Status = model.InterventionStatusCancelled
				cancelled = append(cancelled, i)
			}
		}

		loaded, err := tx.Tickets().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload ticket: %w", err)
		}
		updated = loaded

		if ticket.Status == status {
			return nil
		}
		admins, err := adminRecipients(ctx, tx)
		if err != nil {
			return err
		}
		recipients := notify.StatusChangeRecipients(admins, &loaded.UserID)
		payload := ticketEvent{
			TicketID: id,
			OwnerID:  loaded.UserID,
			Status:   status,
			Priority: loaded.Priority,
		}
		for _, i := range cancelled {
			payload.Cancelled = append(payload.Cancelled, i.ID)
		}
		return appendEvent(ctx, tx, model.EventTicketStatusChanged, id, recipients, payload)
	})
	if err != nil {
		return nil, err
	}

	if status == model.TicketStatusCancelled {
		s.notifier.TicketCancelled(ctx, *updated, cancelled)
	}
	record := model.NewTicketRecord(*updated)
	return &record, nil
}

// Delete removes a ticket. Its interventions stay, detached from it.
func (s *TicketService) Delete(ctx context.Context, principal model.Principal, id uint64) error {
	if err := requireAuthenticated(principal); err != nil {
		return err
	}
	ticket, err := s.store.Tickets().GetByID(ctx, id)
	if err != nil {
		return mapNotFound(err)
	}
	if !policy.CanDeleteTicket(principal, *ticket) {
		return ErrPermissionDenied
	}
	return mapNotFound(s.store.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Tickets().Delete(ctx, id)
	}))
}

func (s *TicketService) AddComment(ctx context.Context, principal model.Principal, ticketID uint64, content string) (*model.Comment, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidInput("The content field is required.")
	}
	ticket, err := s.viewable(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		TicketID: ticketID,
		UserID:   principal.UserID,
		Content:  content,
	}
	if err := s.store.Comments().Create(ctx, comment); err != nil {
		return nil, err
	}

	s.notifier.TicketComment(ctx, *ticket, *comment)
	return comment, nil
}

func (s *TicketService) ListComments(ctx context.Context, principal model.Principal, ticketID uint64) ([]model.Comment, error) {
	if _, err := s.viewable(ctx, principal, ticketID); err != nil {
		return nil, err
	}
	return s.store.Comments().ListByTicket(ctx, ticketID)
}

func (s *TicketService) DeleteComment(ctx context.Context, principal model.Principal, commentID uint64) error {
	if err := requireAuthenticated(principal); err != nil {
		return err
	}
	comment, err := s.store.Comments().GetByID(ctx, commentID)
	if err != nil {
		return mapNotFound(err)
	}
	if !policy.CanDeleteComment(principal, *comment) {
		return ErrPermissionDenied
	}
	return mapNotFound(s.store.Comments().Delete(ctx, commentID))
}

func (s *TicketService) viewable(ctx context.Context, principal model.Principal, id uint64) (*model.Ticket, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !policy.CanViewTicket(principal, *ticket) {
		return nil, ErrPermissionDenied
	}
	return ticket, nil
}
