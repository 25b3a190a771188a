package service

import (
	"context"
	"fmt"
	"time"

	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
)

const (
	statsDays            = 7
	statsTopTechnicians  = 5
	statsRecentTickets   = 3
	statsRecentCompleted = 2
	statsActivityLimit   = 5
)

type StatsService struct {
	stats repository.StatsRepository
	now   func() time.Time
}

func NewStatsService(stats repository.StatsRepository) *StatsService {
	return &StatsService{stats: stats, now: time.Now}
}

type Dashboard struct {
	Stats         DashboardCounts `json:"stats"`
	Charts        DashboardCharts `json:"charts"`
	Notifications []string        `json:"notifications"`
}

type DashboardCounts struct {
	UsersCount       int64 `json:"usersCount"`
	TechniciansCount int64 `json:"techniciansCount"`
	OpenTicketsCount int64 `json:"openTicketsCount"`
}

type DashboardCharts struct {
	Requests    ChartSeries `json:"requests"`
	Technicians ChartSeries `json:"technicians"`
	Categories  ChartSeries `json:"categories"`
}

type ChartSeries struct {
	Labels []string `json:"labels"`
	Data   []int64  `json:"data"`
}

// Dashboard builds the admin overview: head counts, tickets filed per day
// over the last week, the busiest technicians, tickets per category and a
// short feed of recent activity.
func (s *StatsService) Dashboard(ctx context.Context, principal model.Principal) (*Dashboard, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	var (
		out Dashboard
		err error
	)
	if out.Stats.UsersCount, err = s.stats.CountUsersByRole(ctx, model.RoleClient); err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	if out.Stats.TechniciansCount, err = s.stats.CountUsersByRole(ctx, model.RoleTechnician); err != nil {
		return nil, fmt.Errorf("count technicians: %w", err)
	}
	if out.Stats.OpenTicketsCount, err = s.stats.CountTicketsByStatus(ctx, model.TicketStatusOpen); err != nil {
		return nil, fmt.Errorf("count open tickets: %w", err)
	}

	if out.Charts.Requests, err = s.requestsPerDay(ctx); err != nil {
		return nil, err
	}

	top, err := s.stats.TopTechnicians(ctx, statsTopTechnicians)
	if err != nil {
		return nil, fmt.Errorf("top technicians: %w", err)
	}
	out.Charts.Technicians = seriesOf(top)

	categories, err := s.stats.TicketsByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("tickets by category: %w", err)
	}
	out.Charts.Categories = seriesOf(categories)

	if out.Notifications, err = s.recentActivity(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}

// requestsPerDay always yields one point per day, oldest first, with zero
// for days without tickets.
func (s *StatsService) requestsPerDay(ctx context.Context) (ChartSeries, error) {
	first := model.PlannedDateOf(s.now().UTC()).AddDate(0, 0, -(statsDays - 1))
	rows, err := s.stats.TicketsPerDay(ctx, first)
	if err != nil {
		return ChartSeries{}, fmt.Errorf("tickets per day: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Day.Format("2006-01-02")] += row.Count
	}

	series := ChartSeries{
		Labels: make([]string, 0, statsDays),
		Data:   make([]int64, 0, statsDays),
	}
	for i := 0; i < statsDays; i++ {
		day := first.AddDate(0, 0, i)
		series.Labels = append(series.Labels, day.Format("Mon"))
		series.Data = append(series.Data, counts[day.Format("2006-01-02")])
	}
	return series, nil
}

func (s *StatsService) recentActivity(ctx context.Context) ([]string, error) {
	tickets, err := s.stats.RecentTickets(ctx, statsRecentTickets)
	if err != nil {
		return nil, fmt.Errorf("recent tickets: %w", err)
	}
	completed, err := s.stats.RecentCompletedInterventions(ctx, statsRecentCompleted)
	if err != nil {
		return nil, fmt.Errorf("recent interventions: %w", err)
	}

	feed := make([]string, 0, len(tickets)+len(completed))
	for _, t := range tickets {
		feed = append(feed, fmt.Sprintf("New client request submitted: %s by %s", t.Title, nameOf(t.Owner)))
	}
	for _, i := range completed {
		feed = append(feed, fmt.Sprintf("Technician %s completed intervention #%d", nameOf(i.Technician), i.ID))
	}
	if len(feed) > statsActivityLimit {
		feed = feed[:statsActivityLimit]
	}
	return feed, nil
}

func seriesOf(rows []repository.LabelCount) ChartSeries {
	series := ChartSeries{
		Labels: make([]string, 0, len(rows)),
		Data:   make([]int64, 0, len(rows)),
	}
	for _, row := range rows {
		series.Labels = append(series.Labels, row.Label)
		series.Data = append(series.Data, row.Count)
	}
	return series
}

func nameOf(u *model.User) string {
	if u == nil {
		return "unknown"
	}
	return u.Name
}
