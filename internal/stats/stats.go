package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LoneMagma/pacify-site/internal/geo"
	"github.com/LoneMagma/pacify-site/internal/store"
)

const (
	topProjectsLimit    = 5
	trafficSourcesLimit = 10
	recentActivityLimit = 20
	liveWindow          = 5 * time.Minute
)

// TrafficSource is one classified referrer bucket. Classification happens
// after grouping, so two distinct referrers mapping to the same bucket stay
// separate rows.
type TrafficSource struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

// ActivityEntry is one row of the recent-activity feed.
type ActivityEntry struct {
	Type      string  `json:"type"`
	Page      *string `json:"page"`
	Project   *string `json:"project"`
	Location  string  `json:"location"`
	Timestamp string  `json:"timestamp"`
}

// DashboardSummary is the full admin dashboard payload.
type DashboardSummary struct {
	TotalViews     int64                 `json:"total_views"`
	ViewsToday     int64                 `json:"views_today"`
	ViewsThisWeek  int64                 `json:"views_this_week"`
	TopProjects    []store.ProjectClicks `json:"top_projects"`
	TrafficSources []TrafficSource       `json:"traffic_sources"`
	RecentActivity []ActivityEntry       `json:"recent_activity"`
}

// Aggregator computes dashboard reports from the event store. Every call
// recomputes from the store; nothing is cached.
type Aggregator struct {
	store *store.EventStore
}

func NewAggregator(s *store.EventStore) *Aggregator {
	return &Aggregator{store: s}
}

// Dashboard builds the full analytics payload with time windows derived
// from now: today starts at midnight UTC, the week window trails 7 days.
func (a *Aggregator) Dashboard(ctx context.Context, now time.Time) (*DashboardSummary, error) {
	now = now.UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := todayStart.AddDate(0, 0, -7)

	// 1) Page-view counts: all time, today, trailing week.
	totalViews, err := a.store.CountEvents(ctx, "page_view", nil)
	if err != nil {
		return nil, err
	}
	viewsToday, err := a.store.CountEvents(ctx, "page_view", &todayStart)
	if err != nil {
		return nil, err
	}
	viewsThisWeek, err := a.store.CountEvents(ctx, "page_view", &weekStart)
	if err != nil {
		return nil, err
	}

	// 2) Most-clicked projects.
	topProjects, err := a.store.TopProjects(ctx, topProjectsLimit)
	if err != nil {
		return nil, err
	}

	// 3) Traffic sources over the trailing week, classified per raw group.
	referrers, err := a.store.ReferrerCounts(ctx, weekStart, trafficSourcesLimit)
	if err != nil {
		return nil, err
	}
	sources := make([]TrafficSource, 0, len(referrers))
	for _, r := range referrers {
		sources = append(sources, TrafficSource{Source: classifySource(r.Referrer), Count: r.Count})
	}

	// 4) Recent activity feed.
	recent, err := a.store.RecentEvents(ctx, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	activity := make([]ActivityEntry, 0, len(recent))
	for _, evt := range recent {
		activity = append(activity, ActivityEntry{
			Type:      evt.EventType,
			Page:      evt.PagePath,
			Project:   evt.ProjectName,
			Location:  formatLocation(evt.City, evt.Country),
			Timestamp: evt.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return &DashboardSummary{
		TotalViews:     totalViews,
		ViewsToday:     viewsToday,
		ViewsThisWeek:  viewsThisWeek,
		TopProjects:    topProjects,
		TrafficSources: sources,
		RecentActivity: activity,
	}, nil
}

// LiveVisitors estimates current visitors as the count of distinct page
// paths hit in the trailing five minutes. It does not deduplicate by client,
// so it approximates sessions rather than counting them.
func (a *Aggregator) LiveVisitors(ctx context.Context, now time.Time) (int64, error) {
	return a.store.DistinctPagePaths(ctx, now.UTC().Add(-liveWindow))
}

// classifySource maps a raw referrer to a display bucket: empty or absent is
// direct traffic, known platforms match by substring, anything else is the
// referrer truncated to 50 characters.
func classifySource(referrer *string) string {
	if referrer == nil || *referrer == "" {
		return "Direct"
	}
	lower := strings.ToLower(*referrer)
	switch {
	case strings.Contains(lower, "google"):
		return "Google"
	case strings.Contains(lower, "github"):
		return "GitHub"
	case strings.Contains(lower, "instagram"):
		return "Instagram"
	}
	if len(*referrer) > 50 {
		return (*referrer)[:50]
	}
	return *referrer
}

// formatLocation renders "City, Country", dropping the city when it is the
// Unknown sentinel.
func formatLocation(city, country string) string {
	if city == geo.Unknown {
		return country
	}
	return fmt.Sprintf("%s, %s", city, country)
}
