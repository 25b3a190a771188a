// Package notify computes who hears about a domain event and stores one
// notification per recipient. Delivery failures are logged and swallowed.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
)

type Fanout struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	log           zerolog.Logger
}

func NewFanout(users repository.UserRepository, notifications repository.NotificationRepository, log zerolog.Logger) *Fanout {
	return &Fanout{
		users:         users,
		notifications: notifications,
		log:           log.With().Str("component", "notify").Logger(),
	}
}

// InterventionAssigned notifies the technician and, when the ticket owner is
// a client, the owner. Each notice is stored at most once per intervention.
func (f *Fanout) InterventionAssigned(ctx context.Context, i model.Intervention) {
	var ticketID uint64
	if i.TicketID != nil {
		ticketID = *i.TicketID
	}
	owner := f.owner(ctx, i.Ticket)
	key := AssignmentKey(i.ID)

	for _, rcpt := range AssignmentRecipients(i, owner) {
		data := model.NotificationData{
			InterventionID: &i.ID,
			TicketID:       i.TicketID,
			Title:          i.Title,
			Status:         string(i.Status),
		}
		if rcpt.Audience == AudienceTechnician {
			data.Type = model.NotificationInterventionAssigned
			data.Message = assignedMessage(ticketID)
		} else {
			data.Type = model.NotificationInterventionScheduled
			data.Message = scheduledMessage(ticketID)
		}
		f.deliver(ctx, rcpt.UserID, data, &key)
	}
}

// InterventionStatusChanged notifies admins and the ticket owner of a status
// change. Nothing is sent when the status did not change.
func (f *Fanout) InterventionStatusChanged(ctx context.Context, i model.Intervention, oldStatus model.InterventionStatus) {
	if oldStatus == i.Status {
		return
	}
	admins, ok := f.admins(ctx)
	if !ok {
		return
	}

	var key *string
	if i.Status == model.InterventionStatusCompleted {
		k := CompletionKey(i.ID)
		key = &k
	}

	for _, rcpt := range StatusChangeRecipients(admins, ownerIDOf(i)) {
		f.deliver(ctx, rcpt.UserID, model.NotificationData{
			Type:           model.NotificationInterventionStatus,
			Message:        statusMessage(rcpt.Audience, i.ID, i.Status),
			InterventionID: &i.ID,
			TicketID:       i.TicketID,
			Status:         string(i.Status),
		}, key)
	}
}

// ReportSubmitted announces a completion through a technician report to
// admins and the ticket owner.
func (f *Fanout) ReportSubmitted(ctx context.Context, i model.Intervention) {
	admins, ok := f.admins(ctx)
	if !ok {
		return
	}
	key := CompletionKey(i.ID)
	for _, rcpt := range StatusChangeRecipients(admins, ownerIDOf(i)) {
		f.deliver(ctx, rcpt.UserID, model.NotificationData{
			Type:           model.NotificationInterventionStatus,
			Message:        completedMessage(rcpt.Audience, i.ID),
			InterventionID: &i.ID,
			TicketID:       i.TicketID,
			Status:         string(model.InterventionStatusCompleted),
		}, &key)
	}
}

func (f *Fanout) NewTicket(ctx context.Context, t model.Ticket) {
	admins, ok := f.admins(ctx)
	if !ok {
		return
	}
	for _, rcpt := range AdminRecipients(admins) {
		f.deliver(ctx, rcpt.UserID, model.NotificationData{
			Type:     model.NotificationNewTicket,
			Message:  newTicketMessage(t.ID),
			TicketID: &t.ID,
			Title:    t.Title,
			Status:   string(t.Status),
		}, nil)
	}
}

// TicketCancelled tells admins about the ticket and each technician about
// their interventions that were cancelled with it.
func (f *Fanout) TicketCancelled(ctx context.Context, t model.Ticket, cancelled []model.Intervention) {
	if admins, ok := f.admins(ctx); ok {
		for _, rcpt := range AdminRecipients(admins) {
			f.deliver(ctx, rcpt.UserID, model.NotificationData{
				Type:     model.NotificationTicketCancelled,
				Message:  ticketCancelledMessage(t.ID),
				TicketID: &t.ID,
				Title:    t.Title,
				Status:   string(model.TicketStatusCancelled),
			}, nil)
		}
	}

	for _, i := range cancelled {
		f.deliver(ctx, i.TechnicianID, model.NotificationData{
			Type:           model.NotificationInterventionStatus,
			Message:        interventionCancelledMessage(i.ID, t.ID),
			InterventionID: &i.ID,
			TicketID:       &t.ID,
			Status:         string(model.InterventionStatusCancelled),
		}, nil)
	}
}

// TicketComment notifies the ticket owner unless they wrote the comment.
func (f *Fanout) TicketComment(ctx context.Context, t model.Ticket, c model.Comment) {
	if c.UserID == t.UserID {
		return
	}
	f.deliver(ctx, t.UserID, model.NotificationData{
		Type:     model.NotificationTicketComment,
		Message:  ticketCommentMessage,
		TicketID: &t.ID,
		Title:    t.Title,
	}, nil)
}

func (f *Fanout) ContactMessage(ctx context.Context, m model.Message) {
	admins, ok := f.admins(ctx)
	if !ok {
		return
	}
	for _, rcpt := range AdminRecipients(admins) {
		f.deliver(ctx, rcpt.UserID, model.NotificationData{
			Type:      model.NotificationContactMessage,
			Message:   contactMessage(m.Name, m.Subject),
			MessageID: &m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Subject:   m.Subject,
		}, nil)
	}
}

func (f *Fanout) deliver(ctx context.Context, recipientID uint64, data model.NotificationData, dedupKey *string) {
	n := &model.Notification{
		Type:         data.Type,
		NotifiableID: recipientID,
		Data:         data,
		DedupKey:     dedupKey,
	}
	event := f.log.With().
		Uint64("recipient_id", recipientID).
		Str("type", string(data.Type)).
		Logger()
	if data.InterventionID != nil {
		event = event.With().Uint64("intervention_id", *data.InterventionID).Logger()
	}
	if data.TicketID != nil {
		event = event.With().Uint64("ticket_id", *data.TicketID).Logger()
	}

	inserted, err := f.notifications.InsertUnique(ctx, n)
	switch {
	case err != nil:
		event.Error().Err(err).Msg("notification delivery failed")
	case !inserted:
		event.Info().Msg("notification already sent, skipping duplicate")
	default:
		event.Debug().Msg("notification sent")
	}
}

func (f *Fanout) admins(ctx context.Context) ([]model.User, bool) {
	admins, err := f.users.ListByRole(ctx, model.RoleAdmin)
	if err != nil {
		f.log.Error().Err(err).Msg("resolve admin recipients")
		return nil, false
	}
	return admins, true
}

func (f *Fanout) owner(ctx context.Context, t *model.Ticket) *model.User {
	if t == nil {
		return nil
	}
	if t.Owner != nil {
		return t.Owner
	}
	owner, err := f.users.GetByID(ctx, t.UserID)
	if err != nil {
		f.log.Error().Err(err).Uint64("ticket_id", t.ID).Msg("resolve ticket owner")
		return nil
	}
	return owner
}

func ownerIDOf(i model.Intervention) *uint64 {
	if owner, ok := i.OwnerID(); ok {
		return &owner
	}
	return nil
}
