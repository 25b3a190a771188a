package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"maintenance-service/internal/model"
)

func TestAssignScheduledIntervention(t *testing.T) {
	e := newEnv(t)
	tomorrow := e.now.Add(24 * time.Hour)

	record, err := e.interventions.Assign(ctx(), e.adminP(), AssignInput{
		TicketID:     e.ticket.ID,
		TechnicianID: e.tech.ID,
		ScheduledAt:  &tomorrow,
	})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !record.Success || !record.AssignmentConfirmed {
		t.Errorf("record not confirmed: %+v", record)
	}
	if record.AssignedToUserID == nil || *record.AssignedToUserID != e.tech.ID {
		t.Errorf("assigned_to_user_id = %v", record.AssignedToUserID)
	}
	if record.TechnicianName == nil || *record.TechnicianName != e.tech.Name {
		t.Errorf("technician_name = %v", record.TechnicianName)
	}

	intervention, _ := e.store.Intervention(record.ID)
	if intervention.Status != model.InterventionStatusScheduled {
		t.Errorf("intervention status = %s", intervention.Status)
	}
	if want := "Intervention for Ticket #"; len(intervention.Title) <= len(want) || intervention.Title[:len(want)] != want {
		t.Errorf("default title = %q", intervention.Title)
	}

	ticket, _ := e.store.Ticket(e.ticket.ID)
	if ticket.Status != model.TicketStatusAssigned || !ticket.IsAssignedTo(e.tech.ID) {
		t.Errorf("ticket = status %s assigned_to %v", ticket.Status, ticket.AssignedTo)
	}

	plannings := e.store.AllPlannings()
	if len(plannings) != 1 {
		t.Fatalf("plannings = %d, want 1", len(plannings))
	}
	if plannings[0].InterventionID != record.ID || plannings[0].TechnicianID != e.tech.ID {
		t.Errorf("planning = %+v", plannings[0])
	}
	if !plannings[0].PlannedDate.Equal(model.PlannedDateOf(tomorrow)) || plannings[0].Status != "scheduled" {
		t.Errorf("planning date/status = %s/%s", plannings[0].PlannedDate, plannings[0].Status)
	}

	if got := len(e.store.NotificationsFor(e.tech.ID)); got != 1 {
		t.Errorf("technician notifications = %d, want 1", got)
	}
	if got := len(e.store.NotificationsFor(e.client.ID)); got != 1 {
		t.Errorf("owner notifications = %d, want 1", got)
	}
	if got := len(e.store.NotificationsFor(e.admin.ID)); got != 0 {
		t.Errorf("admin notifications = %d, want 0", got)
	}

	events := e.store.AllOutbox()
	if len(events) != 1 || events[0].EventType != model.EventInterventionAssigned {
		t.Fatalf("outbox = %+v", events)
	}
	if ids := events[0].RecipientIDs(); len(ids) != 2 {
		t.Errorf("outbox recipients = %v", ids)
	}
}

func TestAssignWithoutScheduleIsPending(t *testing.T) {
	e := newEnv(t)
	title := "Replace valve"

	record, err := e.interventions.Assign(ctx(), e.adminP(), AssignInput{
		TicketID:     e.ticket.ID,
		TechnicianID: e.tech.ID,
		Title:        &title,
	})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if record.Intervention.Status != model.InterventionStatusPending {
		t.Errorf("status = %s, want pending", record.Intervention.Status)
	}
	if record.Intervention.Title != title {
		t.Errorf("title = %q", record.Intervention.Title)
	}
	if got := len(e.store.AllPlannings()); got != 0 {
		t.Errorf("plannings = %d, want 0", got)
	}
	ticket, _ := e.store.Ticket(e.ticket.ID)
	if ticket.Status != model.TicketStatusAssigned || !ticket.IsAssignedTo(e.tech.ID) {
		t.Errorf("ticket not assigned: %+v", ticket)
	}
}

func TestAssignRejectsNonTechnician(t *testing.T) {
	for _, name := range []string{"client", "admin", "missing"} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			target := map[string]uint64{"client": e.client.ID, "admin": e.admin.ID, "missing": 999}[name]

			_, err := e.interventions.Assign(ctx(), e.adminP(), AssignInput{TicketID: e.ticket.ID, TechnicianID: target})
			if !errors.Is(err, ErrInvalidTechnician) {
				t.Fatalf("err = %v, want ErrInvalidTechnician", err)
			}
			var svcErr *Error
			if !errors.As(err, &svcErr) || svcErr.Code != CodeInvalidTechnician {
				t.Errorf("error code = %+v", svcErr)
			}
			if got := len(e.store.AllInterventions()); got != 0 {
				t.Errorf("interventions = %d, want 0", got)
			}
			if got := len(e.store.AllNotifications()); got != 0 {
				t.Errorf("notifications = %d, want 0", got)
			}
		})
	}
}

func TestAssignRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	for _, p := range []model.Principal{e.techP(), e.clientP()} {
		_, err := e.interventions.Assign(ctx(), p, AssignInput{TicketID: e.ticket.ID, TechnicianID: e.tech.ID})
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("%s: err = %v", p.Role, err)
		}
	}
	if _, err := e.interventions.Assign(ctx(), model.Principal{}, AssignInput{}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous: err = %v", err)
	}
}

func TestAssignValidatesInput(t *testing.T) {
	e := newEnv(t)
	lat := 91.0
	cases := map[string]AssignInput{
		"missing ticket": {TechnicianID: e.tech.ID},
		"unknown ticket": {TicketID: 999, TechnicianID: e.tech.ID},
		"bad latitude":   {TicketID: e.ticket.ID, TechnicianID: e.tech.ID, Latitude: &lat},
	}
	for name, in := range cases {
		if _, err := e.interventions.Assign(ctx(), e.adminP(), in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestAssignVerificationFailureRollsBack(t *testing.T) {
	e := newEnv(t)
	e.store.Faults.DropTicketAssignment = true
	tomorrow := e.now.Add(24 * time.Hour)

	_, err := e.interventions.Assign(ctx(), e.adminP(), AssignInput{
		TicketID:     e.ticket.ID,
		TechnicianID: e.tech.ID,
		ScheduledAt:  &tomorrow,
	})
	if !errors.Is(err, ErrAssignmentFailed) || !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("err = %v, want assignment failure caused by verification", err)
	}
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Message != "Failed to assign technician" {
		t.Errorf("error = %+v", svcErr)
	}

	if got := len(e.store.AllInterventions()); got != 0 {
		t.Errorf("interventions = %d after rollback", got)
	}
	if got := len(e.store.AllPlannings()); got != 0 {
		t.Errorf("plannings = %d after rollback", got)
	}
	ticket, _ := e.store.Ticket(e.ticket.ID)
	if ticket.Status != model.TicketStatusOpen || ticket.AssignedTo != nil {
		t.Errorf("ticket changed despite rollback: %+v", ticket)
	}
	if got := len(e.store.AllNotifications()); got != 0 {
		t.Errorf("notifications = %d after rollback", got)
	}
	if got := len(e.store.AllOutbox()); got != 0 {
		t.Errorf("outbox events = %d after rollback", got)
	}
}

func TestAssignSurvivesNotificationFailure(t *testing.T) {
	e := newEnv(t)
	e.store.Faults.NotificationErr = errors.New("delivery down")

	record, err := e.interventions.Assign(ctx(), e.adminP(), AssignInput{TicketID: e.ticket.ID, TechnicianID: e.tech.ID})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, ok := e.store.Intervention(record.ID); !ok {
		t.Error("intervention missing after notification failure")
	}
}

func TestReassignUpdatesPlanningInPlace(t *testing.T) {
	e := newEnv(t)
	tomorrow := e.now.Add(24 * time.Hour)
	record, err := e.interventions.Assign(ctx(), e.adminP(), AssignInput{
		TicketID:     e.ticket.ID,
		TechnicianID: e.tech.ID,
		ScheduledAt:  &tomorrow,
	})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	first := e.store.AllPlannings()[0]

	nextWeek := e.now.Add(7 * 24 * time.Hour)
	updated, err := e.interventions.Update(ctx(), e.adminP(), record.ID, InterventionPatch{
		TechnicianID: &e.tech2.ID,
		ScheduledAt:  &nextWeek,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.TechnicianID != e.tech2.ID {
		t.Errorf("technician = %d", updated.TechnicianID)
	}

	plannings := e.store.AllPlannings()
	if len(plannings) != 1 {
		t.Fatalf("plannings = %d, want 1", len(plannings))
	}
	if plannings[0].ID != first.ID || plannings[0].TechnicianID != e.tech2.ID ||
		!plannings[0].PlannedDate.Equal(model.PlannedDateOf(nextWeek)) {
		t.Errorf("planning = %+v", plannings[0])
	}
	ticket, _ := e.store.Ticket(e.ticket.ID)
	if !ticket.IsAssignedTo(e.tech2.ID) {
		t.Errorf("ticket assigned_to = %v", ticket.AssignedTo)
	}
	if got := e.countNotifications(e.tech2.ID, model.NotificationInterventionAssigned); got != 1 {
		t.Errorf("new technician notifications = %d", got)
	}
	if got := e.countNotifications(e.client.ID, model.NotificationInterventionScheduled); got != 1 {
		t.Errorf("owner assignment notifications = %d, want 1", got)
	}
}

func TestUpdateRestrictsReassignmentToAdmins(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusScheduled, e.tech.ID)

	if _, err := e.interventions.Update(ctx(), e.techP(), i.ID, InterventionPatch{TechnicianID: &e.tech2.ID}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("technician reassign: err = %v", err)
	}
	location := "Basement"
	if _, err := e.interventions.Update(ctx(), e.techP(), i.ID, InterventionPatch{Location: &location}); err != nil {
		t.Errorf("technician location edit: %v", err)
	}
	if _, err := e.interventions.Update(ctx(), e.adminP(), i.ID, InterventionPatch{TechnicianID: &e.client.ID}); !errors.Is(err, ErrInvalidTechnician) {
		t.Errorf("reassign to client: err = %v", err)
	}
}

func TestUpdateStatusTransitionRules(t *testing.T) {
	cases := []struct {
		from    model.InterventionStatus
		to      model.InterventionStatus
		allowed bool
		ticket  model.TicketStatus
	}{
		{model.InterventionStatusScheduled, model.InterventionStatusInProgress, true, model.TicketStatusInProgress},
		{model.InterventionStatusPending, model.InterventionStatusInProgress, false, ""},
		{model.InterventionStatusInProgress, model.InterventionStatusInProgress, false, ""},
		{model.InterventionStatusCompleted, model.InterventionStatusInProgress, false, ""},
		{model.InterventionStatusCancelled, model.InterventionStatusInProgress, false, ""},
		{model.InterventionStatusInProgress, model.InterventionStatusCompleted, true, model.TicketStatusClosed},
		{model.InterventionStatusScheduled, model.InterventionStatusCompleted, false, ""},
		{model.InterventionStatusPending, model.InterventionStatusScheduled, true, model.TicketStatusAssigned},
		{model.InterventionStatusCompleted, model.InterventionStatusScheduled, true, model.TicketStatusAssigned},
		{model.InterventionStatusInProgress, model.InterventionStatusCancelled, true, model.TicketStatusCancelled},
		{model.InterventionStatusScheduled, model.InterventionStatusPending, true, model.TicketStatusOpen},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			e := newEnv(t)
			i := e.seedIntervention(tc.from, e.tech.ID)

			updated, err := e.interventions.UpdateStatus(ctx(), e.techP(), i.ID, tc.to)
			stored, _ := e.store.Intervention(i.ID)
			ticket, _ := e.store.Ticket(e.ticket.ID)

			if !tc.allowed {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("err = %v, want ErrInvalidTransition", err)
				}
				if stored.Status != tc.from {
					t.Errorf("status changed to %s", stored.Status)
				}
				if ticket.Status != model.TicketStatusOpen {
					t.Errorf("ticket status changed to %s", ticket.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
			if updated.Status != tc.to || stored.Status != tc.to {
				t.Errorf("status = %s / %s", updated.Status, stored.Status)
			}
			if ticket.Status != tc.ticket {
				t.Errorf("ticket status = %s, want %s", ticket.Status, tc.ticket)
			}
			if tc.to == model.InterventionStatusCompleted && (stored.CompletedAt == nil || !stored.CompletedAt.Equal(e.now)) {
				t.Errorf("completed_at = %v", stored.CompletedAt)
			}
		})
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusScheduled, e.tech.ID)
	if _, err := e.interventions.UpdateStatus(ctx(), e.adminP(), i.ID, "done"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateStatusByOtherTechnicianIsForbidden(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusPending, e.tech2.ID)

	// pending -> in_progress would also be an invalid transition; ownership is checked first.
	_, err := e.interventions.UpdateStatus(ctx(), e.techP(), i.ID, model.InterventionStatusInProgress)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	stored, _ := e.store.Intervention(i.ID)
	if stored.Status != model.InterventionStatusPending {
		t.Errorf("status changed to %s", stored.Status)
	}
	if got := len(e.store.AllNotifications()); got != 0 {
		t.Errorf("notifications = %d", got)
	}

	if _, err := e.interventions.UpdateStatus(ctx(), e.clientP(), i.ID, model.InterventionStatusCancelled); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("client: err = %v", err)
	}
}

func TestUpdateStatusNotifiesAdminsAndOwner(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusScheduled, e.tech.ID)

	if _, err := e.interventions.UpdateStatus(ctx(), e.techP(), i.ID, model.InterventionStatusInProgress); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got := e.countNotifications(e.admin.ID, model.NotificationInterventionStatus); got != 1 {
		t.Errorf("admin notifications = %d", got)
	}
	if got := e.countNotifications(e.client.ID, model.NotificationInterventionStatus); got != 1 {
		t.Errorf("owner notifications = %d", got)
	}
	if got := len(e.store.NotificationsFor(e.tech.ID)); got != 0 {
		t.Errorf("technician notified of own change: %d", got)
	}

	log := e.store.StatusLog()
	if len(log) != 1 || log[0].OldStatus == nil || *log[0].OldStatus != model.InterventionStatusScheduled {
		t.Errorf("status log = %+v", log)
	}
}

func TestUpdateStatusSameStatusIsQuiet(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusScheduled, e.tech.ID)

	if _, err := e.interventions.UpdateStatus(ctx(), e.adminP(), i.ID, model.InterventionStatusScheduled); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got := len(e.store.AllNotifications()); got != 0 {
		t.Errorf("notifications = %d", got)
	}
	if got := len(e.store.AllOutbox()); got != 0 {
		t.Errorf("outbox events = %d", got)
	}
}

func TestSubmitReportCompletesIntervention(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusInProgress, e.tech.ID)
	hours := 1.5

	report, err := e.interventions.SubmitReport(ctx(), e.techP(), i.ID, ReportInput{Report: "done", WorkedHours: &hours})
	if err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	if report.Status != model.ReportStatusSubmitted || report.TechnicianID != e.tech.ID {
		t.Errorf("report = %+v", report)
	}

	stored, _ := e.store.Intervention(i.ID)
	if stored.Status != model.InterventionStatusCompleted || stored.CompletedAt == nil {
		t.Errorf("intervention = status %s completed_at %v", stored.Status, stored.CompletedAt)
	}
	ticket, _ := e.store.Ticket(e.ticket.ID)
	if ticket.Status != model.TicketStatusClosed {
		t.Errorf("ticket status = %s", ticket.Status)
	}
	reports := e.store.AllReports()
	if len(reports) != 1 || reports[0].InterventionID != i.ID || reports[0].Report != "done" {
		t.Errorf("reports = %+v", reports)
	}
	for _, id := range []uint64{e.admin.ID, e.client.ID} {
		if got := e.countNotifications(id, model.NotificationInterventionStatus); got != 1 {
			t.Errorf("recipient %d notifications = %d, want 1", id, got)
		}
	}

	events := e.store.AllOutbox()
	if len(events) != 1 || events[0].EventType != model.EventInterventionCompleted {
		t.Errorf("outbox = %+v", events)
	}
}

func TestSubmitReportSkipsOrderCheck(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusScheduled, e.tech.ID)

	if _, err := e.interventions.SubmitReport(ctx(), e.adminP(), i.ID, ReportInput{Report: "fixed on first visit"}); err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	stored, _ := e.store.Intervention(i.ID)
	if stored.Status != model.InterventionStatusCompleted {
		t.Errorf("status = %s", stored.Status)
	}
}

func TestSubmitReportValidation(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusInProgress, e.tech.ID)
	negative := -1.0

	if _, err := e.interventions.SubmitReport(ctx(), e.techP(), i.ID, ReportInput{Report: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty report: err = %v", err)
	}
	if _, err := e.interventions.SubmitReport(ctx(), e.techP(), i.ID, ReportInput{Report: "x", WorkedHours: &negative}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative hours: err = %v", err)
	}
	if _, err := e.interventions.SubmitReport(ctx(), principalOf(e.tech2), i.ID, ReportInput{Report: "x"}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("other technician: err = %v", err)
	}
	if _, err := e.interventions.SubmitReport(ctx(), e.techP(), 999, ReportInput{Report: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing intervention: err = %v", err)
	}
}

func TestCompletionNotifiesEachRecipientOnce(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusInProgress, e.tech.ID)

	if _, err := e.interventions.UpdateStatus(ctx(), e.techP(), i.ID, model.InterventionStatusCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := e.interventions.SubmitReport(ctx(), e.techP(), i.ID, ReportInput{Report: "done"}); err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	if _, err := e.interventions.SubmitReport(ctx(), e.techP(), i.ID, ReportInput{Report: "addendum"}); err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}

	for _, id := range []uint64{e.admin.ID, e.client.ID} {
		if got := e.countNotifications(id, model.NotificationInterventionStatus); got != 1 {
			t.Errorf("recipient %d completion notifications = %d, want 1", id, got)
		}
	}
	if got := len(e.store.AllReports()); got != 2 {
		t.Errorf("reports = %d, want 2", got)
	}
}

func TestInterventionVisibility(t *testing.T) {
	e := newEnv(t)
	mine := e.seedIntervention(model.InterventionStatusScheduled, e.tech.ID)
	other := e.seedIntervention(model.InterventionStatusScheduled, e.tech2.ID)
	stranger := e.store.AddUser("Sam Stranger", model.RoleClient)

	if _, err := e.interventions.Get(ctx(), e.techP(), other.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("technician viewing other: err = %v", err)
	}
	if _, err := e.interventions.Get(ctx(), e.clientP(), mine.ID); err != nil {
		t.Errorf("owner viewing: %v", err)
	}
	if _, err := e.interventions.Get(ctx(), principalOf(stranger), mine.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("stranger viewing: err = %v", err)
	}

	list, err := e.interventions.List(ctx(), e.techP(), InterventionListOptions{})
	if err != nil || len(list) != 1 || list[0].ID != mine.ID {
		t.Errorf("technician list = %v, %v", list, err)
	}
	list, err = e.interventions.List(ctx(), e.clientP(), InterventionListOptions{})
	if err != nil || len(list) != 2 {
		t.Errorf("owner list = %d, %v", len(list), err)
	}
	list, err = e.interventions.List(ctx(), principalOf(stranger), InterventionListOptions{})
	if err != nil || len(list) != 0 {
		t.Errorf("stranger list = %d, %v", len(list), err)
	}
}

func TestCalendarRange(t *testing.T) {
	e := newEnv(t)
	e.seedIntervention(model.InterventionStatusScheduled, e.tech.ID)
	from := e.now
	to := e.now.Add(48 * time.Hour)

	list, err := e.interventions.Calendar(ctx(), e.techP(), model.DateRange{From: &from, To: &to})
	if err != nil || len(list) != 1 {
		t.Errorf("calendar = %d, %v", len(list), err)
	}
	if _, err := e.interventions.Calendar(ctx(), e.clientP(), model.DateRange{}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("client calendar: err = %v", err)
	}
	if _, err := e.interventions.Calendar(ctx(), e.adminP(), model.DateRange{From: &to, To: &from}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("inverted range: err = %v", err)
	}
}

func TestDeleteIntervention(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusPending, e.tech.ID)

	if err := e.interventions.Delete(ctx(), e.techP(), i.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("technician delete: err = %v", err)
	}
	if err := e.interventions.Delete(ctx(), e.adminP(), i.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := e.interventions.Delete(ctx(), e.adminP(), i.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestGenerateReport(t *testing.T) {
	e := newEnv(t)
	open := e.seedIntervention(model.InterventionStatusInProgress, e.tech.ID)
	done := e.seedIntervention(model.InterventionStatusCompleted, e.tech.ID)
	findings := "Corroded valve"

	if _, err := e.interventions.GenerateReport(ctx(), e.adminP(), GenerateReportInput{InterventionID: open.ID, Summary: "s"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("non-completed: err = %v", err)
	}
	if _, err := e.interventions.GenerateReport(ctx(), e.techP(), GenerateReportInput{InterventionID: done.ID, Summary: "s"}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("technician: err = %v", err)
	}

	report, err := e.interventions.GenerateReport(ctx(), e.adminP(), GenerateReportInput{
		InterventionID: done.ID,
		Summary:        "Valve replaced",
		Findings:       &findings,
	})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	var content model.ReportContent
	if err := json.Unmarshal([]byte(report.Content), &content); err != nil {
		t.Fatalf("content is not json: %v", err)
	}
	if content.Summary != "Valve replaced" || content.Findings == nil || *content.Findings != findings || content.Recommendations != nil {
		t.Errorf("content = %+v", content)
	}

	page, err := e.interventions.ListReports(ctx(), e.adminP(), 1, 10)
	if err != nil || page.Total != 1 || len(page.Reports) != 1 {
		t.Errorf("reports page = %+v, %v", page, err)
	}
}

func TestReassignVerificationFailureIsAssignmentFailure(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusScheduled, e.tech.ID)
	e.store.Faults.DropTicketAssignment = true

	_, err := e.interventions.Update(ctx(), e.adminP(), i.ID, InterventionPatch{TechnicianID: &e.tech2.ID})
	if !errors.Is(err, ErrAssignmentFailed) || !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("err = %v, want assignment failure caused by verification", err)
	}
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Code != CodeAssignmentFailed {
		t.Errorf("error = %+v", svcErr)
	}

	stored, _ := e.store.Intervention(i.ID)
	if stored.TechnicianID != e.tech.ID {
		t.Errorf("technician = %d after rollback", stored.TechnicianID)
	}
	if got := len(e.store.AllOutbox()); got != 0 {
		t.Errorf("outbox events = %d after rollback", got)
	}
}

func TestUpdateStatusRechecksTransitionInsideTransaction(t *testing.T) {
	e := newEnv(t)
	i := e.seedIntervention(model.InterventionStatusScheduled, e.tech.ID)

	// Another request starts the visit just before ours takes its lock.
	raced := false
	e.store.Faults.BeforeTx = func() {
		if raced {
			return
		}
		raced = true
		started := i
		started.Status = model.InterventionStatusInProgress
		e.store.AddIntervention(started)
	}

	_, err := e.interventions.UpdateStatus(ctx(), e.techP(), i.ID, model.InterventionStatusInProgress)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	for _, entry := range e.store.StatusLog() {
		if entry.InterventionID == i.ID {
			t.Errorf("unexpected status log entry %+v", entry)
		}
	}
	if got := len(e.store.AllOutbox()); got != 0 {
		t.Errorf("outbox events = %d", got)
	}
}
