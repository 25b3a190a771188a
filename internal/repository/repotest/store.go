// Package repotest provides an in-memory repository.Store for tests.
// Transactions work on a copy of the state that replaces the original only
// when the callback succeeds, so rollbacks are observable.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
)

// Faults injects failures into the in-memory store.
type Faults struct {
	// DropTicketAssignment makes TicketRepository.Assign and Update write the
	// other columns but silently skip setting assigned_to.
	DropTicketAssignment bool
	// NotificationErr is returned by every NotificationRepository.InsertUnique call.
	NotificationErr error
	// OutboxErr is returned by every OutboxRepository.Append call.
	OutboxErr error
	// BeforeTx runs at the start of every WithinTx, before the snapshot is
	// taken. Tests use it to land a competing write between a read and the
	// transaction that follows it.
	BeforeTx func()
}

type state struct {
	seq           uint64
	users         map[uint64]model.User
	tickets       map[uint64]model.Ticket
	interventions map[uint64]model.Intervention
	plannings     map[uint64]model.Planning
	reports       map[uint64]model.InterventionReport
	statusLog     []model.InterventionStatusLog
	comments      map[uint64]model.Comment
	messages      map[uint64]model.Message
	notifications []model.Notification
	outbox        []model.OutboxEvent
}

func newState() *state {
	return &state{
		users:         map[uint64]model.User{},
		tickets:       map[uint64]model.Ticket{},
		interventions: map[uint64]model.Intervention{},
		plannings:     map[uint64]model.Planning{},
		reports:       map[uint64]model.InterventionReport{},
		comments:      map[uint64]model.Comment{},
		messages:      map[uint64]model.Message{},
	}
}

func (s *state) clone() *state {
	c := &state{
		seq:           s.seq,
		users:         make(map[uint64]model.User, len(s.users)),
		tickets:       make(map[uint64]model.Ticket, len(s.tickets)),
		interventions: make(map[uint64]model.Intervention, len(s.interventions)),
		plannings:     make(map[uint64]model.Planning, len(s.plannings)),
		reports:       make(map[uint64]model.InterventionReport, len(s.reports)),
		statusLog:     append([]model.InterventionStatusLog(nil), s.statusLog...),
		comments:      make(map[uint64]model.Comment, len(s.comments)),
		messages:      make(map[uint64]model.Message, len(s.messages)),
		notifications: append([]model.Notification(nil), s.notifications...),
		outbox:        append([]model.OutboxEvent(nil), s.outbox...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.interventions {
		c.interventions[k] = v
	}
	for k, v := range s.plannings {
		c.plannings[k] = v
	}
	for k, v := range s.reports {
		c.reports[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for k, v := range s.messages {
		c.messages[k] = v
	}
	return c
}

func (s *state) nextID() uint64 {
	s.seq++
	return s.seq
}

// Store is an in-memory repository.Store.
type Store struct {
	Faults Faults

	mu   *sync.Mutex
	txMu *sync.Mutex
	st   *state
	root *Store
}

func New() *Store {
	return &Store{mu: &sync.Mutex{}, txMu: &sync.Mutex{}, st: newState()}
}

func (s *Store) faults() Faults {
	if s.root != nil {
		return s.root.Faults
	}
	return s.Faults
}

func (s *Store) with(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if hook := s.faults().BeforeTx; hook != nil {
		hook()
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	root := s
	if s.root != nil {
		root = s.root
	}
	tx := &Store{mu: &sync.Mutex{}, txMu: &sync.Mutex{}, st: snapshot, root: root}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = snapshot
	s.mu.Unlock()
	return nil
}

func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Tickets() repository.TicketRepository             { return ticketRepo{s} }
func (s *Store) Interventions() repository.InterventionRepository { return interventionRepo{s} }
func (s *Store) Plannings() repository.PlanningRepository         { return planningRepo{s} }
func (s *Store) Reports() repository.ReportRepository             { return reportRepo{s} }
func (s *Store) Comments() repository.CommentRepository           { return commentRepo{s} }
func (s *Store) Messages() repository.MessageRepository           { return messageRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return outboxRepo{s} }
func (s *Store) Stats() repository.StatsRepository                { return statsRepo{s} }

// AddUser stores u and returns it with its id assigned.
func (s *Store) AddUser(name string, role model.Role) model.User {
	var u model.User
	s.with(func(st *state) {
		u = model.User{
			ID:        st.nextID(),
			Name:      name,
			Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.test",
			Role:      role,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		st.users[u.ID] = u
	})
	return u
}

// AddTicket stores an open ticket owned by ownerID.
func (s *Store) AddTicket(ownerID uint64, title string) model.Ticket {
	var t model.Ticket
	s.with(func(st *state) {
		t = model.Ticket{
			ID:          st.nextID(),
			UserID:      ownerID,
			Title:       title,
			Description: title,
			Priority:    model.TicketPriorityMedium,
			Status:      model.TicketStatusOpen,
			Category:    "general",
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		st.tickets[t.ID] = t
	})
	return t
}

// AddIntervention stores i as is, assigning an id when missing.
func (s *Store) AddIntervention(i model.Intervention) model.Intervention {
	s.with(func(st *state) {
		if i.ID == 0 {
			i.ID = st.nextID()
		}
		i.Ticket, i.Technician, i.Planning, i.Reports = nil, nil, nil, nil
		st.interventions[i.ID] = i
	})
	return i
}

func (s *Store) AllInterventions() []model.Intervention {
	var out []model.Intervention
	s.with(func(st *state) {
		for _, i := range st.interventions {
			out = append(out, i)
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (s *Store) AllPlannings() []model.Planning {
	var out []model.Planning
	s.with(func(st *state) {
		for _, p := range st.plannings {
			out = append(out, p)
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (s *Store) AllReports() []model.InterventionReport {
	var out []model.InterventionReport
	s.with(func(st *state) {
		for _, r := range st.reports {
			out = append(out, r)
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (s *Store) AllNotifications() []model.Notification {
	var out []model.Notification
	s.with(func(st *state) {
		out = append(out, st.notifications...)
	})
	return out
}

// NotificationsFor returns the notifications delivered to recipientID.
func (s *Store) NotificationsFor(recipientID uint64) []model.Notification {
	var out []model.Notification
	for _, n := range s.AllNotifications() {
		if n.NotifiableID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) AllOutbox() []model.OutboxEvent {
	var out []model.OutboxEvent
	s.with(func(st *state) {
		out = append(out, st.outbox...)
	})
	return out
}

func (s *Store) StatusLog() []model.InterventionStatusLog {
	var out []model.InterventionStatusLog
	s.with(func(st *state) {
		out = append(out, st.statusLog...)
	})
	return out
}

// SetTicketCreatedAt backdates a ticket.
func (s *Store) SetTicketCreatedAt(id uint64, at time.Time) {
	s.with(func(st *state) {
		if t, ok := st.tickets[id]; ok {
			t.CreatedAt = at
			st.tickets[id] = t
		}
	})
}

// User returns the stored user, password hash included.
func (s *Store) User(id uint64) (model.User, bool) {
	var (
		u  model.User
		ok bool
	)
	s.with(func(st *state) { u, ok = st.users[id] })
	return u, ok
}

func (s *Store) Ticket(id uint64) (model.Ticket, bool) {
	var (
		t  model.Ticket
		ok bool
	)
	s.with(func(st *state) { t, ok = st.tickets[id] })
	return t, ok
}

func (s *Store) Intervention(id uint64) (model.Intervention, bool) {
	var (
		i  model.Intervention
		ok bool
	)
	s.with(func(st *state) { i, ok = st.interventions[id] })
	return i, ok
}

func notFound() error {
	return gorm.ErrRecordNotFound
}

func userPtr(st *state, id uint64) *model.User {
	u, ok := st.users[id]
	if !ok {
		return nil
	}
	return &u
}

func loadTicket(st *state, t model.Ticket) model.Ticket {
	t.Owner = userPtr(st, t.UserID)
	t.Technician = nil
	if t.AssignedTo != nil {
		t.Technician = userPtr(st, *t.AssignedTo)
	}
	return t
}

func loadIntervention(st *state, i model.Intervention) model.Intervention {
	i.Ticket = nil
	if i.TicketID != nil {
		if t, ok := st.tickets[*i.TicketID]; ok {
			loaded := loadTicket(st, t)
			i.Ticket = &loaded
		}
	}
	i.Technician = userPtr(st, i.TechnicianID)
	i.Planning = nil
	for _, p := range st.plannings {
		if p.InterventionID == i.ID {
			p := p
			i.Planning = &p
			break
		}
	}
	return i
}
