package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"maintenance-service/internal/model"
	"maintenance-service/internal/repository/repotest"
)

type fixture struct {
	store  *repotest.Store
	fanout *Fanout
	admin  model.User
	tech   model.User
	client model.User
	ticket model.Ticket
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.New()
	f := &fixture{store: store}
	f.admin = store.AddUser("Ada Admin", model.RoleAdmin)
	f.tech = store.AddUser("Tom Tech", model.RoleTechnician)
	f.client = store.AddUser("Cleo Client", model.RoleClient)
	f.ticket = store.AddTicket(f.client.ID, "Leaking pipe")
	f.fanout = NewFanout(store.Users(), store.Notifications(), zerolog.Nop())
	return f
}

func (f *fixture) intervention(t *testing.T, status model.InterventionStatus) model.Intervention {
	t.Helper()
	when := time.Now().Add(24 * time.Hour)
	stored := f.store.AddIntervention(model.Intervention{
		Title:        "Fix pipe",
		Status:       status,
		ScheduledAt:  &when,
		TicketID:     &f.ticket.ID,
		TechnicianID: f.tech.ID,
	})
	loaded, err := f.store.Interventions().GetByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("load intervention: %v", err)
	}
	return *loaded
}

func TestInterventionAssignedNotifiesTechnicianAndClientOnce(t *testing.T) {
	f := newFixture(t)
	i := f.intervention(t, model.InterventionStatusScheduled)
	ctx := context.Background()

	f.fanout.InterventionAssigned(ctx, i)
	f.fanout.InterventionAssigned(ctx, i)

	techNotes := f.store.NotificationsFor(f.tech.ID)
	if len(techNotes) != 1 || techNotes[0].Type != model.NotificationInterventionAssigned {
		t.Fatalf("technician notifications = %+v", techNotes)
	}
	if techNotes[0].Data.InterventionID == nil || *techNotes[0].Data.InterventionID != i.ID {
		t.Errorf("payload does not reference intervention: %+v", techNotes[0].Data)
	}
	clientNotes := f.store.NotificationsFor(f.client.ID)
	if len(clientNotes) != 1 || clientNotes[0].Type != model.NotificationInterventionScheduled {
		t.Fatalf("client notifications = %+v", clientNotes)
	}
	if got := len(f.store.NotificationsFor(f.admin.ID)); got != 0 {
		t.Errorf("admin got %d assignment notifications", got)
	}
}

func TestInterventionAssignedSkipsNonClientOwner(t *testing.T) {
	f := newFixture(t)
	f.ticket = f.store.AddTicket(f.admin.ID, "Admin filed")
	i := f.intervention(t, model.InterventionStatusPending)

	f.fanout.InterventionAssigned(context.Background(), i)

	if got := len(f.store.NotificationsFor(f.admin.ID)); got != 0 {
		t.Errorf("admin owner got %d notifications", got)
	}
	if got := len(f.store.NotificationsFor(f.tech.ID)); got != 1 {
		t.Errorf("technician got %d notifications", got)
	}
}

func TestStatusChangedNotifiesAdminsAndOwner(t *testing.T) {
	f := newFixture(t)
	i := f.intervention(t, model.InterventionStatusInProgress)

	f.fanout.InterventionStatusChanged(context.Background(), i, model.InterventionStatusScheduled)

	adminNotes := f.store.NotificationsFor(f.admin.ID)
	if len(adminNotes) != 1 {
		t.Fatalf("admin notifications = %d", len(adminNotes))
	}
	if want := "Intervention #" + AssignmentKey(i.ID) + " is now in progress"; adminNotes[0].Data.Message != want {
		t.Errorf("admin message = %q, want %q", adminNotes[0].Data.Message, want)
	}
	clientNotes := f.store.NotificationsFor(f.client.ID)
	if len(clientNotes) != 1 {
		t.Fatalf("client notifications = %d", len(clientNotes))
	}
	if got := len(f.store.NotificationsFor(f.tech.ID)); got != 0 {
		t.Errorf("technician got %d status notifications", got)
	}
}

func TestStatusChangedSameStatusIsSilent(t *testing.T) {
	f := newFixture(t)
	i := f.intervention(t, model.InterventionStatusScheduled)

	f.fanout.InterventionStatusChanged(context.Background(), i, model.InterventionStatusScheduled)

	if got := len(f.store.AllNotifications()); got != 0 {
		t.Errorf("got %d notifications for a no-op change", got)
	}
}

func TestCompletionIsAtMostOncePerRecipient(t *testing.T) {
	f := newFixture(t)
	i := f.intervention(t, model.InterventionStatusCompleted)
	ctx := context.Background()

	f.fanout.InterventionStatusChanged(ctx, i, model.InterventionStatusInProgress)
	f.fanout.ReportSubmitted(ctx, i)
	f.fanout.ReportSubmitted(ctx, i)

	for _, id := range []uint64{f.admin.ID, f.client.ID} {
		if got := len(f.store.NotificationsFor(id)); got != 1 {
			t.Errorf("recipient %d got %d completion notifications", id, got)
		}
	}
}

func TestDeliveryErrorsAreSwallowed(t *testing.T) {
	f := newFixture(t)
	f.store.Faults.NotificationErr = errors.New("smtp down")
	i := f.intervention(t, model.InterventionStatusScheduled)

	f.fanout.InterventionAssigned(context.Background(), i)

	if got := len(f.store.AllNotifications()); got != 0 {
		t.Errorf("got %d notifications despite failure", got)
	}
}

func TestTicketEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	i := f.intervention(t, model.InterventionStatusCancelled)

	f.fanout.NewTicket(ctx, f.ticket)
	f.fanout.TicketCancelled(ctx, f.ticket, []model.Intervention{i})
	f.fanout.TicketComment(ctx, f.ticket, model.Comment{TicketID: f.ticket.ID, UserID: f.client.ID})
	f.fanout.TicketComment(ctx, f.ticket, model.Comment{TicketID: f.ticket.ID, UserID: f.admin.ID})
	f.fanout.ContactMessage(ctx, model.Message{ID: 9, Name: "Visitor", Subject: "Hello"})

	adminTypes := map[model.NotificationType]int{}
	for _, n := range f.store.NotificationsFor(f.admin.ID) {
		adminTypes[n.Type]++
	}
	for _, typ := range []model.NotificationType{
		model.NotificationNewTicket,
		model.NotificationTicketCancelled,
		model.NotificationContactMessage,
	} {
		if adminTypes[typ] != 1 {
			t.Errorf("admin %s count = %d", typ, adminTypes[typ])
		}
	}

	techNotes := f.store.NotificationsFor(f.tech.ID)
	if len(techNotes) != 1 || techNotes[0].Data.Status != string(model.InterventionStatusCancelled) {
		t.Errorf("technician notifications = %+v", techNotes)
	}

	clientNotes := f.store.NotificationsFor(f.client.ID)
	if len(clientNotes) != 1 || clientNotes[0].Type != model.NotificationTicketComment {
		t.Errorf("client notifications = %+v", clientNotes)
	}
}

func TestRecipientsDeduplicate(t *testing.T) {
	admins := []model.User{{ID: 1, Role: model.RoleAdmin}, {ID: 2, Role: model.RoleAdmin}}
	owner := uint64(2)
	got := StatusChangeRecipients(admins, &owner)
	if len(got) != 2 {
		t.Fatalf("recipients = %+v", got)
	}
	if got[1].Audience != AudienceAdmin {
		t.Errorf("admin owner should keep the admin wording")
	}
}
