package domain

import "time"

// ReleaseAnalytics aggregates page views for one release slug.
type ReleaseAnalytics struct {
	Slug       string          `json:"slug"`
	Views      int             `json:"views"`
	Sessions   map[string]bool `json:"sessions"`
	Referrers  map[string]int  `json:"referrers"`
	DailyViews map[string]int  `json:"dailyViews"`
	FirstView  time.Time       `json:"firstView"`
	LastView   time.Time       `json:"lastView"`
}

// Referrer is one entry of the top-referrers list.
type Referrer struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// AnalyticsReport is the get-analytics response.
type AnalyticsReport struct {
	TotalViews        int            `json:"totalViews"`
	UniqueVisitors    int            `json:"uniqueVisitors"`
	AverageDailyViews int            `json:"averageDailyViews"`
	PublishedDays     int            `json:"publishedDays"`
	TopReferrers      []Referrer     `json:"topReferrers"`
	ViewsByDay        map[string]int `json:"viewsByDay"`
	LastUpdated       time.Time      `json:"lastUpdated"`
}

// PageView is one tracked view of a published release.
type PageView struct {
	Slug      string `json:"slug" validate:"required"`
	SessionID string `json:"sessionId"`
	Referrer  string `json:"referrer"`
}

// TrackResult echoes the session so the page can reuse it.
type TrackResult struct {
	Tracked      bool   `json:"tracked"`
	SessionID    string `json:"sessionId"`
	IsNewVisitor bool   `json:"isNewVisitor"`
}
