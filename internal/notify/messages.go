package notify

import (
	"fmt"
	"strconv"
	"strings"

	"maintenance-service/internal/model"
)

func assignedMessage(ticketID uint64) string {
	return fmt.Sprintf("You have been assigned a new intervention for Ticket #%d", ticketID)
}

func scheduledMessage(ticketID uint64) string {
	return fmt.Sprintf("A technician has been assigned to your ticket #%d.", ticketID)
}

func statusMessage(audience Audience, interventionID uint64, status model.InterventionStatus) string {
	label := strings.ReplaceAll(string(status), "_", " ")
	if audience == AudienceOwner {
		return fmt.Sprintf("Your intervention #%d status has been updated to %s", interventionID, label)
	}
	return fmt.Sprintf("Intervention #%d is now %s", interventionID, label)
}

func completedMessage(audience Audience, interventionID uint64) string {
	if audience == AudienceOwner {
		return fmt.Sprintf("Your intervention #%d has been completed. The technician has submitted the report.", interventionID)
	}
	return fmt.Sprintf("Intervention #%d has been completed and report submitted", interventionID)
}

func newTicketMessage(ticketID uint64) string {
	return fmt.Sprintf("New maintenance request: Ticket #%d – Pending assignment", ticketID)
}

func ticketCancelledMessage(ticketID uint64) string {
	return fmt.Sprintf("Ticket #%d has been cancelled.", ticketID)
}

func interventionCancelledMessage(interventionID, ticketID uint64) string {
	return fmt.Sprintf("Intervention #%d for Ticket #%d has been cancelled.", interventionID, ticketID)
}

const ticketCommentMessage = "A new comment was added to your ticket."

func contactMessage(name, subject string) string {
	return fmt.Sprintf("New contact message from %s: %s", name, subject)
}

// AssignmentKey deduplicates assignment notices per intervention.
func AssignmentKey(interventionID uint64) string {
	return strconv.FormatUint(interventionID, 10)
}

// CompletionKey deduplicates completion notices per intervention.
func CompletionKey(interventionID uint64) string {
	return strconv.FormatUint(interventionID, 10) + ":completed"
}
