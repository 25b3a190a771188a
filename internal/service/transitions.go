package service

import "maintenance-service/internal/model"

// CheckTransition enforces the ordering rules of the intervention lifecycle.
// Only in_progress and completed have a required predecessor.
func CheckTransition(from, to model.InterventionStatus) error {
	switch to {
	case model.InterventionStatusInProgress:
		if from != model.InterventionStatusScheduled {
			return invalidTransition("Intervention must be scheduled before it can be started.")
		}
	case model.InterventionStatusCompleted:
		if from != model.InterventionStatusInProgress {
			return invalidTransition("Intervention must be in progress before it can be completed.")
		}
	}
	return nil
}

// TicketStatusFor maps an intervention status onto its ticket. The second
// result is false when the ticket keeps its current status.
func TicketStatusFor(status model.InterventionStatus) (model.TicketStatus, bool) {
	switch status {
	case model.InterventionStatusInProgress:
		return model.TicketStatusInProgress, true
	case model.InterventionStatusCompleted:
		return model.TicketStatusClosed, true
	case model.InterventionStatusCancelled:
		return model.TicketStatusCancelled, true
	case model.InterventionStatusScheduled:
		return model.TicketStatusAssigned, true
	default:
		return "", false
	}
}
