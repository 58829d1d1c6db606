package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/presswire-api/internal/domain"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/clock"
	"github.com/presswire-api/internal/pkg/validate"
)

const topReferrers = 5

type Repository interface {
	Get(ctx context.Context, slug string) (*domain.ReleaseAnalytics, error)
	Create(ctx context.Context, slug string, v *domain.ReleaseAnalytics) error
	Mutate(ctx context.Context, slug string, fn func(*domain.ReleaseAnalytics) error) (*domain.ReleaseAnalytics, error)
}

// Service records anonymous page views and summarises them per release.
type Service interface {
	Track(ctx context.Context, view domain.PageView) (*domain.TrackResult, error)
	Report(ctx context.Context, slug string, publishedAt time.Time) (*domain.AnalyticsReport, error)
}

type ServiceDeps struct {
	Views Repository
	Clock clock.Func
}

type service struct {
	views Repository
	now   clock.Func
}

func NewService(d ServiceDeps) Service {
	return &service{views: d.Views, now: clock.OrReal(d.Clock)}
}

// NewCollection binds the analytics repository to a kv store.
func NewCollection(store kv.Store) *kv.Collection[domain.ReleaseAnalytics] {
	return kv.NewCollection[domain.ReleaseAnalytics](store, "analytics", 0)
}

func (s *service) Track(ctx context.Context, view domain.PageView) (*domain.TrackResult, error) {
	if err := validate.Struct(view); err != nil {
		return nil, err
	}
	session := view.SessionID
	if session == "" {
		session = uuid.NewString()
	}
	now := s.now()
	isNew := false
	apply := func(a *domain.ReleaseAnalytics) error {
		if a.Sessions == nil {
			a.Sessions = map[string]bool{}
		}
		if a.Referrers == nil {
			a.Referrers = map[string]int{}
		}
		if a.DailyViews == nil {
			a.DailyViews = map[string]int{}
		}
		a.Views++
		a.LastView = now
		isNew = !a.Sessions[session]
		a.Sessions[session] = true
		if ref := referrerDomain(view.Referrer); ref != "" {
			a.Referrers[ref]++
		}
		a.DailyViews[now.Format(time.DateOnly)]++
		return nil
	}

	_, err := s.views.Mutate(ctx, view.Slug, apply)
	if kv.IsNotFound(err) {
		fresh := &domain.ReleaseAnalytics{Slug: view.Slug, FirstView: now}
		_ = apply(fresh)
		err = s.views.Create(ctx, view.Slug, fresh)
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race to create; fold into the winner's record.
			_, err = s.views.Mutate(ctx, view.Slug, apply)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("track view: %v: %w", err, domain.ErrUpstream)
	}
	return &domain.TrackResult{Tracked: true, SessionID: session, IsNewVisitor: isNew}, nil
}

// referrerDomain reduces a referrer to its host. "direct" and blanks are dropped.
func referrerDomain(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "direct" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		return u.Host
	}
	return ref
}

func (s *service) Report(ctx context.Context, slug string, publishedAt time.Time) (*domain.AnalyticsReport, error) {
	now := s.now()
	a, err := s.views.Get(ctx, slug)
	switch {
	case kv.IsNotFound(err):
		a = &domain.ReleaseAnalytics{Slug: slug, LastView: now}
	case err != nil:
		return nil, fmt.Errorf("load analytics: %v: %w", err, domain.ErrUpstream)
	}

	days := int(now.Sub(publishedAt) / (24 * time.Hour))
	avg := 0
	if days > 0 {
		avg = int(math.Round(float64(a.Views) / float64(days)))
	}
	byDay := a.DailyViews
	if byDay == nil {
		byDay = map[string]int{}
	}
	return &domain.AnalyticsReport{
		TotalViews:        a.Views,
		UniqueVisitors:    len(a.Sessions),
		AverageDailyViews: avg,
		PublishedDays:     days,
		TopReferrers:      top(a.Referrers, topReferrers),
		ViewsByDay:        byDay,
		LastUpdated:       a.LastView,
	}, nil
}

func top(counts map[string]int, n int) []domain.Referrer {
	out := make([]domain.Referrer, 0, len(counts))
	for u, c := range counts {
		out = append(out, domain.Referrer{URL: u, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].URL < out[j].URL
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
