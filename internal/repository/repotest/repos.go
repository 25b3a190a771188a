package repotest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
)

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id uint64) (*model.User, error) {
	var u *model.User
	r.s.with(func(st *state) { u = userPtr(st, id) })
	if u == nil {
		return nil, notFound()
	}
	return u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	var found *model.User
	r.s.with(func(st *state) {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				u := u
				found = &u
				return
			}
		}
	})
	if found == nil {
		return nil, notFound()
	}
	return found, nil
}

func (r userRepo) List(_ context.Context) ([]model.User, error) {
	var out []model.User
	r.s.with(func(st *state) {
		for _, u := range st.users {
			out = append(out, u)
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

func (r userRepo) ListByRole(_ context.Context, role model.Role) ([]model.User, error) {
	var out []model.User
	r.s.with(func(st *state) {
		for _, u := range st.users {
			if u.Role == role {
				out = append(out, u)
			}
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r userRepo) Create(_ context.Context, user *model.User) error {
	r.s.with(func(st *state) {
		user.ID = st.nextID()
		user.CreatedAt = time.Now()
		user.UpdatedAt = user.CreatedAt
		st.users[user.ID] = *user
	})
	return nil
}

func (r userRepo) Update(_ context.Context, id uint64, changes repository.UserChanges) error {
	var err error
	r.s.with(func(st *state) {
		u, ok := st.users[id]
		if !ok {
			err = notFound()
			return
		}
		if changes.Name != nil {
			u.Name = *changes.Name
		}
		if changes.Email != nil {
			u.Email = *changes.Email
		}
		if changes.Phone != nil {
			u.Phone = *changes.Phone
		}
		if changes.Role != nil {
			u.Role = *changes.Role
		}
		u.UpdatedAt = time.Now()
		st.users[id] = u
	})
	return err
}

func (r userRepo) UpdatePassword(_ context.Context, id uint64, hash string) error {
	var err error
	r.s.with(func(st *state) {
		u, ok := st.users[id]
		if !ok {
			err = notFound()
			return
		}
		u.PasswordHash = hash
		u.UpdatedAt = time.Now()
		st.users[id] = u
	})
	return err
}

// Delete mirrors the foreign keys: owned rows go, assignments are cleared.
func (r userRepo) Delete(_ context.Context, id uint64) error {
	var err error
	r.s.with(func(st *state) {
		if _, ok := st.users[id]; !ok {
			err = notFound()
			return
		}
		delete(st.users, id)
		for k, t := range st.tickets {
			switch {
			case t.UserID == id:
				delete(st.tickets, k)
			case t.AssignedTo != nil && *t.AssignedTo == id:
				t.AssignedTo = nil
				st.tickets[k] = t
			}
		}
		for k, i := range st.interventions {
			if i.TechnicianID == id {
				delete(st.interventions, k)
			}
		}
		for k, p := range st.plannings {
			if p.TechnicianID == id {
				delete(st.plannings, k)
			}
		}
		kept := st.notifications[:0]
		for _, n := range st.notifications {
			if n.NotifiableID != id {
				kept = append(kept, n)
			}
		}
		st.notifications = kept
	})
	return err
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *model.Ticket) error {
	r.s.with(func(st *state) {
		ticket.ID = st.nextID()
		ticket.CreatedAt = time.Now()
		ticket.UpdatedAt = ticket.CreatedAt
		stored := *ticket
		stored.Owner, stored.Technician = nil, nil
		st.tickets[ticket.ID] = stored
	})
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id uint64) (*model.Ticket, error) {
	var (
		t  model.Ticket
		ok bool
	)
	r.s.with(func(st *state) {
		t, ok = st.tickets[id]
		if ok {
			t = loadTicket(st, t)
		}
	})
	if !ok {
		return nil, notFound()
	}
	return &t, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]model.Ticket, error) {
	var out []model.Ticket
	r.s.with(func(st *state) {
		for _, t := range st.tickets {
			if !filter.Scope.AllowsTicket(t) {
				continue
			}
			if len(filter.Statuses) > 0 && !containsTicketStatus(filter.Statuses, t.Status) {
				continue
			}
			if filter.Priority != nil && t.Priority != *filter.Priority {
				continue
			}
			if q := strings.ToLower(filter.Search); q != "" &&
				!strings.Contains(strings.ToLower(t.Title), q) &&
				!strings.Contains(strings.ToLower(t.Description), q) {
				continue
			}
			out = append(out, loadTicket(st, t))
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func containsTicketStatus(list []model.TicketStatus, s model.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r ticketRepo) Update(_ context.Context, id uint64, changes repository.TicketChanges) error {
	drop := r.s.faults().DropTicketAssignment
	var err error
	r.s.with(func(st *state) {
		t, ok := st.tickets[id]
		if !ok {
			err = notFound()
			return
		}
		if changes.Title != nil {
			t.Title = *changes.Title
		}
		if changes.Description != nil {
			t.Description = *changes.Description
		}
		if changes.Priority != nil {
			t.Priority = *changes.Priority
		}
		if changes.Status != nil {
			t.Status = *changes.Status
		}
		if changes.AssignedTo != nil {
			if !drop {
				v := *changes.AssignedTo
				t.AssignedTo = &v
			}
		} else if changes.ClearAssignee {
			t.AssignedTo = nil
		}
		if changes.CancellationReason != nil {
			v := *changes.CancellationReason
			t.CancellationReason = &v
		}
		t.UpdatedAt = time.Now()
		st.tickets[id] = t
	})
	return err
}

func (r ticketRepo) Assign(_ context.Context, id uint64, technicianID uint64, status model.TicketStatus) error {
	drop := r.s.faults().DropTicketAssignment
	var err error
	r.s.with(func(st *state) {
		t, ok := st.tickets[id]
		if !ok {
			err = notFound()
			return
		}
		if !drop {
			t.AssignedTo = &technicianID
		}
		t.Status = status
		t.UpdatedAt = time.Now()
		st.tickets[id] = t
	})
	return err
}

func (r ticketRepo) UpdateStatus(_ context.Context, id uint64, status model.TicketStatus) error {
	var err error
	r.s.with(func(st *state) {
		t, ok := st.tickets[id]
		if !ok {
			err = notFound()
			return
		}
		t.Status = status
		t.UpdatedAt = time.Now()
		st.tickets[id] = t
	})
	return err
}

func (r ticketRepo) Delete(_ context.Context, id uint64) error {
	var err error
	r.s.with(func(st *state) {
		if _, ok := st.tickets[id]; !ok {
			err = notFound()
			return
		}
		delete(st.tickets, id)
		for k, i := range st.interventions {
			if i.TicketID != nil && *i.TicketID == id {
				i.TicketID = nil
				st.interventions[k] = i
			}
		}
		for k, c := range st.comments {
			if c.TicketID == id {
				delete(st.comments, k)
			}
		}
	})
	return err
}

type interventionRepo struct{ s *Store }

func (r interventionRepo) Create(_ context.Context, i *model.Intervention) error {
	r.s.with(func(st *state) {
		i.ID = st.nextID()
		i.CreatedAt = time.Now()
		i.UpdatedAt = i.CreatedAt
		stored := *i
		stored.Ticket, stored.Technician, stored.Planning, stored.Reports = nil, nil, nil, nil
		st.interventions[i.ID] = stored
	})
	return nil
}

func (r interventionRepo) GetByID(_ context.Context, id uint64) (*model.Intervention, error) {
	var (
		i  model.Intervention
		ok bool
	)
	r.s.with(func(st *state) {
		i, ok = st.interventions[id]
		if ok {
			i = loadIntervention(st, i)
		}
	})
	if !ok {
		return nil, notFound()
	}
	return &i, nil
}

// GetForUpdate needs no lock here: WithinTx already serializes transactions.
func (r interventionRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Intervention, error) {
	return r.GetByID(ctx, id)
}

func (r interventionRepo) List(_ context.Context, filter repository.InterventionFilter) ([]model.Intervention, error) {
	var out []model.Intervention
	r.s.with(func(st *state) {
		for _, i := range st.interventions {
			loaded := loadIntervention(st, i)
			switch filter.Scope.Type {
			case model.ScopeAll:
			case model.ScopeTechnician:
				if i.TechnicianID != filter.Scope.UserID {
					continue
				}
			case model.ScopeOwner:
				if owner, ok := loaded.OwnerID(); !ok || owner != filter.Scope.UserID {
					continue
				}
			default:
				continue
			}
			if len(filter.Statuses) > 0 && !containsInterventionStatus(filter.Statuses, i.Status) {
				continue
			}
			if filter.TicketID != nil && (i.TicketID == nil || *i.TicketID != *filter.TicketID) {
				continue
			}
			if filter.ScheduledFrom != nil && (i.ScheduledAt == nil || i.ScheduledAt.Before(*filter.ScheduledFrom)) {
				continue
			}
			if filter.ScheduledTo != nil && (i.ScheduledAt == nil || i.ScheduledAt.After(*filter.ScheduledTo)) {
				continue
			}
			out = append(out, loaded)
		}
	})
	sort.Slice(out, func(a, b int) bool {
		x, y := out[a].ScheduledAt, out[b].ScheduledAt
		switch {
		case x == nil && y == nil:
			return out[a].ID < out[b].ID
		case x == nil:
			return false
		case y == nil:
			return true
		case filter.Ascending:
			return x.Before(*y)
		default:
			return x.After(*y)
		}
	})
	return out, nil
}

func containsInterventionStatus(list []model.InterventionStatus, s model.InterventionStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r interventionRepo) Update(_ context.Context, id uint64, changes repository.InterventionChanges) error {
	var err error
	r.s.with(func(st *state) {
		i, ok := st.interventions[id]
		if !ok {
			err = notFound()
			return
		}
		if changes.TechnicianID != nil {
			i.TechnicianID = *changes.TechnicianID
		}
		if changes.Title != nil {
			i.Title = *changes.Title
		}
		if changes.Description != nil {
			i.Description = changes.Description
		}
		if changes.ScheduledAt != nil {
			i.ScheduledAt = changes.ScheduledAt
		}
		if changes.Location != nil {
			i.Location = changes.Location
		}
		if changes.Latitude != nil {
			i.Latitude = changes.Latitude
		}
		if changes.Longitude != nil {
			i.Longitude = changes.Longitude
		}
		i.UpdatedAt = time.Now()
		st.interventions[id] = i
	})
	return err
}

func (r interventionRepo) UpdateStatus(_ context.Context, id uint64, status model.InterventionStatus, completedAt *time.Time) error {
	var err error
	r.s.with(func(st *state) {
		i, ok := st.interventions[id]
		if !ok {
			err = notFound()
			return
		}
		i.Status = status
		if completedAt != nil {
			i.CompletedAt = completedAt
		}
		i.UpdatedAt = time.Now()
		st.interventions[id] = i
	})
	return err
}

func (r interventionRepo) Delete(_ context.Context, id uint64) error {
	var err error
	r.s.with(func(st *state) {
		if _, ok := st.interventions[id]; !ok {
			err = notFound()
			return
		}
		delete(st.interventions, id)
		for k, p := range st.plannings {
			if p.InterventionID == id {
				delete(st.plannings, k)
			}
		}
		for k, rep := range st.reports {
			if rep.InterventionID == id {
				delete(st.reports, k)
			}
		}
	})
	return err
}

func (r interventionRepo) LogStatusChange(_ context.Context, entry *model.InterventionStatusLog) error {
	r.s.with(func(st *state) {
		entry.ID = st.nextID()
		entry.CreatedAt = time.Now()
		st.statusLog = append(st.statusLog, *entry)
	})
	return nil
}

type planningRepo struct{ s *Store }

func (r planningRepo) Upsert(_ context.Context, p *model.Planning) error {
	r.s.with(func(st *state) {
		now := time.Now()
		for id, existing := range st.plannings {
			if existing.InterventionID == p.InterventionID {
				existing.TechnicianID = p.TechnicianID
				existing.PlannedDate = p.PlannedDate
				existing.Status = p.Status
				existing.UpdatedAt = now
				st.plannings[id] = existing
				p.ID = existing.ID
				p.CreatedAt = existing.CreatedAt
				p.UpdatedAt = now
				return
			}
		}
		p.ID = st.nextID()
		p.CreatedAt = now
		p.UpdatedAt = now
		stored := *p
		stored.Intervention, stored.Technician = nil, nil
		st.plannings[p.ID] = stored
	})
	return nil
}

func (r planningRepo) GetByID(_ context.Context, id uint64) (*model.Planning, error) {
	var (
		p  model.Planning
		ok bool
	)
	r.s.with(func(st *state) {
		p, ok = st.plannings[id]
		if ok {
			p = loadPlanning(st, p)
		}
	})
	if !ok {
		return nil, notFound()
	}
	return &p, nil
}

func (r planningRepo) GetByInterventionID(_ context.Context, interventionID uint64) (*model.Planning, error) {
	var found *model.Planning
	r.s.with(func(st *state) {
		for _, p := range st.plannings {
			if p.InterventionID == interventionID {
				p := p
				found = &p
				return
			}
		}
	})
	if found == nil {
		return nil, notFound()
	}
	return found, nil
}

func (r planningRepo) List(_ context.Context, filter repository.PlanningFilter) ([]model.Planning, error) {
	var out []model.Planning
	r.s.with(func(st *state) {
		for _, p := range st.plannings {
			if filter.TechnicianID != nil && p.TechnicianID != *filter.TechnicianID {
				continue
			}
			if filter.From != nil && p.PlannedDate.Before(model.PlannedDateOf(*filter.From)) {
				continue
			}
			if filter.To != nil && p.PlannedDate.After(model.PlannedDateOf(*filter.To)) {
				continue
			}
			if filter.Status != "" && p.Status != filter.Status {
				continue
			}
			out = append(out, loadPlanning(st, p))
		}
	})
	sort.Slice(out, func(a, b int) bool {
		if out[a].PlannedDate.Equal(out[b].PlannedDate) {
			return out[a].ID < out[b].ID
		}
		return out[a].PlannedDate.Before(out[b].PlannedDate)
	})
	return out, nil
}

func loadPlanning(st *state, p model.Planning) model.Planning {
	p.Technician = userPtr(st, p.TechnicianID)
	p.Intervention = nil
	if i, ok := st.interventions[p.InterventionID]; ok {
		p.Intervention = &i
	}
	return p
}

type reportRepo struct{ s *Store }

func (r reportRepo) Create(_ context.Context, report *model.InterventionReport) error {
	r.s.with(func(st *state) {
		report.ID = st.nextID()
		report.CreatedAt = time.Now()
		report.UpdatedAt = report.CreatedAt
		stored := *report
		stored.Intervention = nil
		st.reports[report.ID] = stored
	})
	return nil
}

func (r reportRepo) List(_ context.Context, limit, offset int) ([]model.InterventionReport, int64, error) {
	var out []model.InterventionReport
	r.s.with(func(st *state) {
		for _, rep := range st.reports {
			if i, ok := st.interventions[rep.InterventionID]; ok {
				rep.Intervention = &i
			}
			out = append(out, rep)
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *model.Comment) error {
	r.s.with(func(st *state) {
		c.ID = st.nextID()
		c.CreatedAt = time.Now()
		c.UpdatedAt = c.CreatedAt
		stored := *c
		stored.Author = nil
		st.comments[c.ID] = stored
	})
	return nil
}

func (r commentRepo) GetByID(_ context.Context, id uint64) (*model.Comment, error) {
	var (
		c  model.Comment
		ok bool
	)
	r.s.with(func(st *state) {
		c, ok = st.comments[id]
		c.Author = userPtr(st, c.UserID)
	})
	if !ok {
		return nil, notFound()
	}
	return &c, nil
}

func (r commentRepo) ListByTicket(_ context.Context, ticketID uint64) ([]model.Comment, error) {
	var out []model.Comment
	r.s.with(func(st *state) {
		for _, c := range st.comments {
			if c.TicketID == ticketID {
				c.Author = userPtr(st, c.UserID)
				out = append(out, c)
			}
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r commentRepo) Delete(_ context.Context, id uint64) error {
	var err error
	r.s.with(func(st *state) {
		if _, ok := st.comments[id]; !ok {
			err = notFound()
			return
		}
		delete(st.comments, id)
	})
	return err
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, m *model.Message) error {
	r.s.with(func(st *state) {
		m.ID = st.nextID()
		m.CreatedAt = time.Now()
		m.UpdatedAt = m.CreatedAt
		st.messages[m.ID] = *m
	})
	return nil
}

func (r messageRepo) GetByID(_ context.Context, id uint64) (*model.Message, error) {
	var (
		m  model.Message
		ok bool
	)
	r.s.with(func(st *state) { m, ok = st.messages[id] })
	if !ok {
		return nil, notFound()
	}
	return &m, nil
}

func (r messageRepo) List(_ context.Context) ([]model.Message, error) {
	var out []model.Message
	r.s.with(func(st *state) {
		for _, m := range st.messages {
			out = append(out, m)
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	return out, nil
}

func (r messageRepo) MarkRead(_ context.Context, id uint64) error {
	var err error
	r.s.with(func(st *state) {
		m, ok := st.messages[id]
		if !ok {
			err = notFound()
			return
		}
		m.IsRead = true
		st.messages[id] = m
	})
	return err
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) InsertUnique(_ context.Context, n *model.Notification) (bool, error) {
	if err := r.s.faults().NotificationErr; err != nil {
		return false, err
	}
	inserted := false
	r.s.with(func(st *state) {
		if n.DedupKey != nil {
			for _, existing := range st.notifications {
				if existing.NotifiableID == n.NotifiableID && existing.Type == n.Type &&
					existing.DedupKey != nil && *existing.DedupKey == *n.DedupKey {
					return
				}
			}
		}
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt = time.Now()
		n.UpdatedAt = n.CreatedAt
		st.notifications = append(st.notifications, *n)
		inserted = true
	})
	return inserted, nil
}

func (r notificationRepo) ListByRecipient(_ context.Context, recipientID uint64) ([]model.Notification, error) {
	var out []model.Notification
	r.s.with(func(st *state) {
		for i := len(st.notifications) - 1; i >= 0; i-- {
			if st.notifications[i].NotifiableID == recipientID {
				out = append(out, st.notifications[i])
			}
		}
	})
	return out, nil
}

func (r notificationRepo) CountUnread(_ context.Context, recipientID uint64) (int64, error) {
	var count int64
	r.s.with(func(st *state) {
		for _, n := range st.notifications {
			if n.NotifiableID == recipientID && n.ReadAt == nil {
				count++
			}
		}
	})
	return count, nil
}

func (r notificationRepo) MarkRead(_ context.Context, recipientID uint64, id uuid.UUID, at time.Time) error {
	err := notFound()
	r.s.with(func(st *state) {
		for k, n := range st.notifications {
			if n.ID == id && n.NotifiableID == recipientID && n.ReadAt == nil {
				n.ReadAt = &at
				st.notifications[k] = n
				err = nil
				return
			}
		}
	})
	return err
}

func (r notificationRepo) MarkAllRead(_ context.Context, recipientID uint64, at time.Time) (int64, error) {
	var marked int64
	r.s.with(func(st *state) {
		for k, n := range st.notifications {
			if n.NotifiableID == recipientID && n.ReadAt == nil {
				n.ReadAt = &at
				st.notifications[k] = n
				marked++
			}
		}
	})
	return marked, nil
}

func (r notificationRepo) Delete(_ context.Context, recipientID uint64, id uuid.UUID) error {
	err := notFound()
	r.s.with(func(st *state) {
		for k, n := range st.notifications {
			if n.ID == id && n.NotifiableID == recipientID {
				st.notifications = append(st.notifications[:k], st.notifications[k+1:]...)
				err = nil
				return
			}
		}
	})
	return err
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Append(_ context.Context, e *model.OutboxEvent) error {
	if err := r.s.faults().OutboxErr; err != nil {
		return err
	}
	r.s.with(func(st *state) {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = time.Now()
		st.outbox = append(st.outbox, *e)
	})
	return nil
}

func (r outboxRepo) ClaimPending(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	r.s.with(func(st *state) {
		for _, e := range st.outbox {
			if e.DeliveredAt != nil || e.DroppedAt != nil {
				continue
			}
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				return
			}
		}
	})
	return out, nil
}

func (r outboxRepo) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.with(func(st *state) {
		for k := range st.outbox {
			if st.outbox[k].ID == id {
				st.outbox[k].Attempts++
				st.outbox[k].DeliveredAt = &at
				return
			}
		}
	})
	return nil
}

func (r outboxRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string, dropAt *time.Time) error {
	r.s.with(func(st *state) {
		for k := range st.outbox {
			if st.outbox[k].ID == id {
				st.outbox[k].Attempts++
				st.outbox[k].LastError = &reason
				if dropAt != nil {
					st.outbox[k].DroppedAt = dropAt
				}
				return
			}
		}
	})
	return nil
}
