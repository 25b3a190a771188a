package service

import (
	"errors"
	"testing"

	"maintenance-service/internal/model"
)

func TestCreateTicketNotifiesAdmins(t *testing.T) {
	e := newEnv(t)

	record, err := e.tickets.Create(ctx(), e.clientP(), TicketInput{
		Title:       " Leaking roof ",
		Description: "Water in the hallway",
		Priority:    model.TicketPriorityHigh,
		Category:    "plumbing",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if record.Title != "Leaking roof" || record.Status != model.TicketStatusOpen || record.UserID != e.client.ID {
		t.Errorf("record = %+v", record.Ticket)
	}
	if record.AssignedToUserID != nil || record.TechnicianName != nil {
		t.Errorf("new ticket already assigned: %+v", record)
	}
	if got := e.countNotifications(e.admin.ID, model.NotificationNewTicket); got != 1 {
		t.Errorf("admin notifications = %d", got)
	}
	if got := len(e.store.NotificationsFor(e.client.ID)); got != 0 {
		t.Errorf("owner notified of own ticket: %d", got)
	}
	events := e.store.AllOutbox()
	if len(events) != 1 || events[0].EventType != model.EventTicketCreated {
		t.Errorf("outbox = %+v", events)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	e := newEnv(t)
	cases := map[string]TicketInput{
		"title":    {Description: "d", Priority: model.TicketPriorityLow, Category: "c"},
		"desc":     {Title: "t", Priority: model.TicketPriorityLow, Category: "c"},
		"priority": {Title: "t", Description: "d", Priority: "whenever", Category: "c"},
		"category": {Title: "t", Description: "d", Priority: model.TicketPriorityLow},
	}
	for name, in := range cases {
		if _, err := e.tickets.Create(ctx(), e.clientP(), in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestCreateTicketRollsBackWhenOutboxFails(t *testing.T) {
	e := newEnv(t)
	e.store.Faults.OutboxErr = errors.New("outbox unavailable")

	_, err := e.tickets.Create(ctx(), e.clientP(), TicketInput{
		Title: "t", Description: "d", Priority: model.TicketPriorityLow, Category: "c",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	list, _ := e.tickets.List(ctx(), e.adminP(), TicketListOptions{})
	if len(list) != 1 {
		t.Errorf("tickets = %d, want only the fixture", len(list))
	}
	if got := len(e.store.AllNotifications()); got != 0 {
		t.Errorf("notifications = %d", got)
	}
}

func TestTicketVisibility(t *testing.T) {
	e := newEnv(t)
	other := e.store.AddTicket(e.admin.ID, "Office lights")

	if _, err := e.tickets.Get(ctx(), e.clientP(), other.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("client viewing foreign ticket: err = %v", err)
	}
	if _, err := e.tickets.Get(ctx(), e.techP(), e.ticket.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("unassigned technician: err = %v", err)
	}
	if _, err := e.tickets.Get(ctx(), e.adminP(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing ticket: err = %v", err)
	}

	list, err := e.tickets.List(ctx(), e.clientP(), TicketListOptions{})
	if err != nil || len(list) != 1 || list[0].ID != e.ticket.ID {
		t.Errorf("client list = %v, %v", list, err)
	}
	list, err = e.tickets.List(ctx(), e.techP(), TicketListOptions{})
	if err != nil || len(list) != 0 {
		t.Errorf("technician list = %d, %v", len(list), err)
	}
	list, err = e.tickets.List(ctx(), e.adminP(), TicketListOptions{})
	if err != nil || len(list) != 2 {
		t.Errorf("admin list = %d, %v", len(list), err)
	}
}

func TestUpdateTicketAssignee(t *testing.T) {
	e := newEnv(t)

	if _, err := e.tickets.Update(ctx(), e.adminP(), e.ticket.ID, TicketPatch{AssignedTo: &e.client.ID}); !errors.Is(err, ErrInvalidTechnician) {
		t.Errorf("assign to client: err = %v", err)
	}

	record, err := e.tickets.Update(ctx(), e.adminP(), e.ticket.ID, TicketPatch{AssignedTo: &e.tech.ID})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if record.AssignedToUserID == nil || *record.AssignedToUserID != e.tech.ID {
		t.Errorf("assigned_to_user_id = %v", record.AssignedToUserID)
	}
	if record.TechnicianName == nil || *record.TechnicianName != e.tech.Name {
		t.Errorf("technician_name = %v", record.TechnicianName)
	}

	record, err = e.tickets.Update(ctx(), e.adminP(), e.ticket.ID, TicketPatch{ClearAssignee: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if record.AssignedTo != nil {
		t.Errorf("assignee not cleared: %v", *record.AssignedTo)
	}
}

func TestUpdateTicketAssigneeVerificationFailure(t *testing.T) {
	e := newEnv(t)
	e.store.Faults.DropTicketAssignment = true

	_, err := e.tickets.Update(ctx(), e.adminP(), e.ticket.ID, TicketPatch{AssignedTo: &e.tech.ID})
	if !errors.Is(err, ErrAssignmentFailed) || !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("err = %v, want assignment failure caused by verification", err)
	}
	ticket, _ := e.store.Ticket(e.ticket.ID)
	if ticket.AssignedTo != nil {
		t.Errorf("assigned_to = %v after rollback", *ticket.AssignedTo)
	}
}

func TestUpdateTicketRejectsAssignedStatus(t *testing.T) {
	e := newEnv(t)
	title := "Renamed"

	record, err := e.tickets.Update(ctx(), e.clientP(), e.ticket.ID, TicketPatch{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if record.Title != title {
		t.Errorf("title = %q", record.Title)
	}
	status := model.TicketStatusAssigned
	if _, err := e.tickets.Update(ctx(), e.clientP(), e.ticket.ID, TicketPatch{Status: &status}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("status assigned via patch: err = %v", err)
	}
}

func TestCancelTicketCascades(t *testing.T) {
	e := newEnv(t)
	active := e.seedIntervention(model.InterventionStatusScheduled, e.tech.ID)
	running := e.seedIntervention(model.InterventionStatusInProgress, e.tech2.ID)
	done := e.seedIntervention(model.InterventionStatusCompleted, e.tech.ID)

	record, err := e.tickets.UpdateStatus(ctx(), e.clientP(), e.ticket.ID, model.TicketStatusCancelled)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if record.Status != model.TicketStatusCancelled {
		t.Errorf("ticket status = %s", record.Status)
	}

	want := map[uint64]model.InterventionStatus{
		active.ID:  model.InterventionStatusCancelled,
		running.ID: model.InterventionStatusCancelled,
		done.ID:    model.InterventionStatusCompleted,
	}
	for id, status := range want {
		stored, _ := e.store.Intervention(id)
		if stored.Status != status {
			t.Errorf("intervention %d status = %s, want %s", id, stored.Status, status)
		}
	}
	if got := len(e.store.StatusLog()); got != 2 {
		t.Errorf("status log entries = %d, want 2", got)
	}

	if got := e.countNotifications(e.admin.ID, model.NotificationTicketCancelled); got != 1 {
		t.Errorf("admin notifications = %d", got)
	}
	if got := e.countNotifications(e.tech.ID, model.NotificationInterventionStatus); got != 1 {
		t.Errorf("technician notifications = %d", got)
	}
	if got := e.countNotifications(e.tech2.ID, model.NotificationInterventionStatus); got != 1 {
		t.Errorf("second technician notifications = %d", got)
	}

	events := e.store.AllOutbox()
	if len(events) != 1 || events[0].EventType != model.EventTicketStatusChanged {
		t.Errorf("outbox = %+v", events)
	}
}

func TestDeleteTicketDetachesInterventions(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusPending, e.tech.ID)

	if err := e.tickets.Delete(ctx(), e.techP(), e.ticket.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("technician delete: err = %v", err)
	}
	if err := e.tickets.Delete(ctx(), e.clientP(), e.ticket.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := e.store.Ticket(e.ticket.ID); ok {
		t.Error("ticket still stored")
	}
	stored, ok := e.store.Intervention(i.ID)
	if !ok || stored.TicketID != nil {
		t.Errorf("intervention = %+v, %v", stored, ok)
	}
}

func TestTicketComments(t *testing.T) {
	e := newEnv(t)

	if _, err := e.tickets.AddComment(ctx(), e.clientP(), e.ticket.ID, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank comment: err = %v", err)
	}
	own, err := e.tickets.AddComment(ctx(), e.clientP(), e.ticket.ID, "Any update?")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if got := len(e.store.AllNotifications()); got != 0 {
		t.Errorf("owner notified of own comment: %d", got)
	}

	reply, err := e.tickets.AddComment(ctx(), e.adminP(), e.ticket.ID, "Technician on the way")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if got := e.countNotifications(e.client.ID, model.NotificationTicketComment); got != 1 {
		t.Errorf("owner comment notifications = %d", got)
	}

	comments, err := e.tickets.ListComments(ctx(), e.clientP(), e.ticket.ID)
	if err != nil || len(comments) != 2 {
		t.Errorf("comments = %d, %v", len(comments), err)
	}

	if err := e.tickets.DeleteComment(ctx(), e.clientP(), reply.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("deleting someone else's comment: err = %v", err)
	}
	if err := e.tickets.DeleteComment(ctx(), e.clientP(), own.ID); err != nil {
		t.Errorf("DeleteComment: %v", err)
	}
	if err := e.tickets.DeleteComment(ctx(), e.adminP(), own.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}
