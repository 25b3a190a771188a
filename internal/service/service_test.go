package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"maintenance-service/internal/model"
	"maintenance-service/internal/notify"
	"maintenance-service/internal/repository/repotest"
)

type env struct {
	store         *repotest.Store
	interventions *InterventionService
	tickets       *TicketService
	messages      *MessageService
	plannings     *PlanningService
	users         *UserService
	notifications *NotificationService
	stats         *StatsService

	admin  model.User
	tech   model.User
	tech2  model.User
	client model.User
	ticket model.Ticket
	now    time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := repotest.New()
	log := zerolog.Nop()
	fanout := notify.NewFanout(store.Users(), store.Notifications(), log)

	e := &env{
		store:         store,
		interventions: NewInterventionService(store, fanout, log),
		tickets:       NewTicketService(store, fanout, log),
		messages:      NewMessageService(store, fanout),
		plannings:     NewPlanningService(store.Plannings()),
		users:         NewUserService(store.Users(), 4),
		notifications: NewNotificationService(store.Notifications()),
		stats:         NewStatsService(store.Stats()),
		now:           time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
	e.interventions.now = func() time.Time { return e.now }
	e.notifications.now = func() time.Time { return e.now }
	e.stats.now = func() time.Time { return e.now }

	e.admin = store.AddUser("Ada Admin", model.RoleAdmin)
	e.tech = store.AddUser("Tom Tech", model.RoleTechnician)
	e.tech2 = store.AddUser("Tina Tech", model.RoleTechnician)
	e.client = store.AddUser("Cleo Client", model.RoleClient)
	e.ticket = store.AddTicket(e.client.ID, "Broken heater")
	return e
}

func principalOf(u model.User) model.Principal {
	return model.Principal{UserID: u.ID, Role: u.Role}
}

func (e *env) adminP() model.Principal  { return principalOf(e.admin) }
func (e *env) techP() model.Principal   { return principalOf(e.tech) }
func (e *env) clientP() model.Principal { return principalOf(e.client) }

// seedIntervention stores an intervention on the fixture ticket, bypassing the workflow.
func (e *env) seedIntervention(status model.InterventionStatus, technicianID uint64) model.Intervention {
	when := e.now.Add(24 * time.Hour)
	return e.store.AddIntervention(model.Intervention{
		Title:        "Heater repair",
		Status:       status,
		ScheduledAt:  &when,
		TicketID:     &e.ticket.ID,
		TechnicianID: technicianID,
	})
}

func (e *env) countNotifications(recipientID uint64, typ model.NotificationType) int {
	count := 0
	for _, n := range e.store.NotificationsFor(recipientID) {
		if n.Type == typ {
			count++
		}
	}
	return count
}

func ctx() context.Context {
	return context.Background()
}
