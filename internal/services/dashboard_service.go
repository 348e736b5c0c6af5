package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soaringjerry/MoodMetrics/internal/models"
	"github.com/soaringjerry/MoodMetrics/internal/utils"
)

// DashboardStore is the read side the dashboard aggregates over.
type DashboardStore interface {
	// ListResponseRecords returns responses created in [from, to), oldest
	// first, joined with the submitter's department and the survey's
	// questions. A zero to leaves the range open-ended.
	ListResponseRecords(ctx context.Context, from, to time.Time) ([]models.ResponseRecord, error)
	// CountEligibleUsers counts approved employees and managers.
	CountEligibleUsers(ctx context.Context) (int, error)
}

// DashboardOptions sizes the windows and result lists.
type DashboardOptions struct {
	WindowDays          int `mapstructure:"window_days"`
	DynamicsWeeks       int `mapstructure:"dynamics_weeks"`
	ZoneLimit           int `mapstructure:"zone_limit"`
	RecommendationLimit int `mapstructure:"recommendation_limit"`
}

func DefaultDashboardOptions() DashboardOptions {
	return DashboardOptions{WindowDays: 14, DynamicsWeeks: 8, ZoneLimit: 3, RecommendationLimit: 6}
}

// DashboardService fetches one snapshot per call and hands it to the
// Calculator. Store reads may run concurrently; aggregation never does.
type DashboardService struct {
	store DashboardStore
	calc  *Calculator
	opts  DashboardOptions
	now   func() time.Time
}

func NewDashboardService(store DashboardStore, calc *Calculator, opts DashboardOptions) *DashboardService {
	def := DefaultDashboardOptions()
	if opts.WindowDays <= 0 {
		opts.WindowDays = def.WindowDays
	}
	if opts.DynamicsWeeks <= 0 {
		opts.DynamicsWeeks = def.DynamicsWeeks
	}
	if opts.ZoneLimit <= 0 {
		opts.ZoneLimit = def.ZoneLimit
	}
	if opts.RecommendationLimit <= 0 {
		opts.RecommendationLimit = def.RecommendationLimit
	}
	return &DashboardService{store: store, calc: calc, opts: opts, now: time.Now}
}

// Period is the human label of the metrics window, e.g. "14 дней".
func (s *DashboardService) Period(locale string) string {
	return utils.Days(locale, s.opts.WindowDays)
}

func (s *DashboardService) window(ctx context.Context) ([]models.ResponseRecord, error) {
	from := s.now().AddDate(0, 0, -s.opts.WindowDays)
	return s.store.ListResponseRecords(ctx, from, time.Time{})
}

// snapshot reads the current window and the eligible-user count in parallel.
func (s *DashboardService) snapshot(ctx context.Context) ([]models.ResponseRecord, int, error) {
	var (
		records  []models.ResponseRecord
		eligible int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.window(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		eligible, err = s.store.CountEligibleUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return records, eligible, nil
}

func (s *DashboardService) Metrics(ctx context.Context, locale string) (*Metrics, error) {
	records, eligible, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m := s.calc.Metrics(records, eligible, s.Period(locale))
	return &m, nil
}

func (s *DashboardService) Dynamics(ctx context.Context, locale string) ([]DynamicsPoint, error) {
	now := s.now()
	from, to := DynamicsRange(now, s.opts.DynamicsWeeks)
	records, err := s.store.ListResponseRecords(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return s.calc.Dynamics(records, now, s.opts.DynamicsWeeks, locale), nil
}

func (s *DashboardService) ProblemZones(ctx context.Context, locale string) ([]Zone, error) {
	records, err := s.window(ctx)
	if err != nil {
		return nil, err
	}
	return s.calc.ProblemZones(records, s.opts.ZoneLimit, locale), nil
}

func (s *DashboardService) Recommendations(ctx context.Context, locale string) ([]Recommendation, error) {
	records, err := s.window(ctx)
	if err != nil {
		return nil, err
	}
	return s.calc.TopRecommendations(records, s.opts.RecommendationLimit, locale), nil
}

func (s *DashboardService) Heatmap(ctx context.Context, locale string) ([]HeatmapCell, error) {
	records, err := s.window(ctx)
	if err != nil {
		return nil, err
	}
	return s.calc.Heatmap(records, locale), nil
}

func (s *DashboardService) Notifications(ctx context.Context, locale string) ([]Notification, error) {
	records, eligible, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m := s.calc.Metrics(records, eligible, s.Period(locale))
	return Notifications(s.calc.Zones(records, locale), m.SurveyCoverage, s.now(), locale), nil
}

// DashboardReport bundles everything the export formats render.
type DashboardReport struct {
	GeneratedAt     time.Time
	Locale          string
	Metrics         Metrics
	Dynamics        []DynamicsPoint
	Zones           []Zone
	Recommendations []Recommendation
	Answers         []ClassifiedAnswer
}

// Report gathers the full dashboard. The window, the dynamics range and the
// eligible count are read concurrently.
func (s *DashboardService) Report(ctx context.Context, locale string) (*DashboardReport, error) {
	now := s.now()
	from, to := DynamicsRange(now, s.opts.DynamicsWeeks)
	var (
		records  []models.ResponseRecord
		history  []models.ResponseRecord
		eligible int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.window(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.store.ListResponseRecords(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		eligible, err = s.store.CountEligibleUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &DashboardReport{
		GeneratedAt:     now,
		Locale:          locale,
		Metrics:         s.calc.Metrics(records, eligible, s.Period(locale)),
		Dynamics:        s.calc.Dynamics(history, now, s.opts.DynamicsWeeks, locale),
		Zones:           s.calc.Zones(records, locale),
		Recommendations: s.calc.Recommendations(records, locale),
		Answers:         s.calc.Classify(records),
	}, nil
}
