package repotest

import (
	"context"
	"sort"
	"time"

	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
)

type statsRepo struct{ s *Store }

func (r statsRepo) CountUsersByRole(_ context.Context, role model.Role) (int64, error) {
	var count int64
	r.s.with(func(st *state) {
		for _, u := range st.users {
			if u.Role == role {
				count++
			}
		}
	})
	return count, nil
}

func (r statsRepo) CountTicketsByStatus(_ context.Context, status model.TicketStatus) (int64, error) {
	var count int64
	r.s.with(func(st *state) {
		for _, t := range st.tickets {
			if t.Status == status {
				count++
			}
		}
	})
	return count, nil
}

func (r statsRepo) TicketsPerDay(_ context.Context, since time.Time) ([]repository.DayCount, error) {
	perDay := map[time.Time]int64{}
	r.s.with(func(st *state) {
		for _, t := range st.tickets {
			if t.CreatedAt.Before(since) {
				continue
			}
			perDay[model.PlannedDateOf(t.CreatedAt.UTC())]++
		}
	})
	out := make([]repository.DayCount, 0, len(perDay))
	for day, count := range perDay {
		out = append(out, repository.DayCount{Day: day, Count: count})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Day.Before(out[b].Day) })
	return out, nil
}

func (r statsRepo) TopTechnicians(_ context.Context, limit int) ([]repository.LabelCount, error) {
	var out []repository.LabelCount
	r.s.with(func(st *state) {
		completed := map[uint64]int64{}
		for _, i := range st.interventions {
			if i.Status == model.InterventionStatusCompleted {
				completed[i.TechnicianID]++
			}
		}
		for _, u := range st.users {
			if u.Role == model.RoleTechnician {
				out = append(out, repository.LabelCount{Label: u.Name, Count: completed[u.ID]})
			}
		}
	})
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count == out[b].Count {
			return out[a].Label < out[b].Label
		}
		return out[a].Count > out[b].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r statsRepo) TicketsByCategory(_ context.Context) ([]repository.LabelCount, error) {
	perCategory := map[string]int64{}
	r.s.with(func(st *state) {
		for _, t := range st.tickets {
			perCategory[t.Category]++
		}
	})
	out := make([]repository.LabelCount, 0, len(perCategory))
	for category, count := range perCategory {
		out = append(out, repository.LabelCount{Label: category, Count: count})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Label < out[b].Label })
	return out, nil
}

func (r statsRepo) RecentTickets(_ context.Context, limit int) ([]model.Ticket, error) {
	var out []model.Ticket
	r.s.with(func(st *state) {
		for _, t := range st.tickets {
			out = append(out, loadTicket(st, t))
		}
	})
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID > out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r statsRepo) RecentCompletedInterventions(_ context.Context, limit int) ([]model.Intervention, error) {
	var out []model.Intervention
	r.s.with(func(st *state) {
		for _, i := range st.interventions {
			if i.Status == model.InterventionStatusCompleted {
				out = append(out, loadIntervention(st, i))
			}
		}
	})
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID > out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
