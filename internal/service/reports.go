package service

import (
	"context"

	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	DefaultActiveStudentsLimit = 5
	DefaultTopFeedbackLimit    = 3
)

// ReportService computes read-only aggregates over the ledger. Every
// report runs inside a store snapshot and is safe to retry.
type ReportService struct {
	store  repository.Store
	logger zerolog.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(store repository.Store, logger zerolog.Logger) *ReportService {
	return &ReportService{
		store:  store,
		logger: logger.With().Str("component", "reports").Logger(),
	}
}

// ReportFilter narrows a report. A nil CollegeID covers every college and
// a non-positive Limit selects the report's default.
type ReportFilter struct {
	CollegeID *int64
	Limit     int
}

func (f ReportFilter) limit(def int) int {
	if f.Limit <= 0 {
		return def
	}
	return f.Limit
}

func (s *ReportService) run(ctx context.Context, report string, fn func(ctx context.Context, r repository.Reader) error) error {
	timer := prometheus.NewTimer(metrics.ReportDuration.WithLabelValues(report))
	defer timer.ObserveDuration()

	if err := s.store.Snapshot(ctx, fn); err != nil {
		err = translate(err)
		s.logger.Error().Err(err).Str("report", report).Msg("report failed")
		return err
	}
	return nil
}

// EventPopularity lists every event with its registration count, most
// registrations first.
func (s *ReportService) EventPopularity(ctx context.Context, f ReportFilter) ([]model.EventPopularity, error) {
	var out []model.EventPopularity
	err := s.run(ctx, "event_popularity", func(ctx context.Context, r repository.Reader) error {
		var err error
		out, err = r.EventPopularity(ctx, f.CollegeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orEmpty(out), nil
}

// TopActiveStudents ranks students with at least one registration.
func (s *ReportService) TopActiveStudents(ctx context.Context, f ReportFilter) ([]model.ActiveStudent, error) {
	limit := f.limit(DefaultActiveStudentsLimit)
	var out []model.ActiveStudent
	err := s.run(ctx, "top_active_students", func(ctx context.Context, r repository.Reader) error {
		var err error
		out, err = r.TopActiveStudents(ctx, f.CollegeID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orEmpty(out), nil
}

// AverageFeedback returns the mean rating of every event. Events without
// feedback carry a nil average.
func (s *ReportService) AverageFeedback(ctx context.Context, f ReportFilter) ([]model.EventFeedback, error) {
	var out []model.EventFeedback
	err := s.run(ctx, "average_feedback", func(ctx context.Context, r repository.Reader) error {
		var err error
		out, err = r.AverageFeedback(ctx, f.CollegeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orEmpty(out), nil
}

// TopEventsFeedback returns the best rated events. Unrated events sort
// after every rated one.
func (s *ReportService) TopEventsFeedback(ctx context.Context, f ReportFilter) ([]model.EventFeedback, error) {
	limit := f.limit(DefaultTopFeedbackLimit)
	var out []model.EventFeedback
	err := s.run(ctx, "top_events_feedback", func(ctx context.Context, r repository.Reader) error {
		var err error
		out, err = r.TopRatedEvents(ctx, f.CollegeID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orEmpty(out), nil
}

// InactiveStudents lists students with no registration at all.
func (s *ReportService) InactiveStudents(ctx context.Context, f ReportFilter) ([]model.InactiveStudent, error) {
	var out []model.InactiveStudent
	err := s.run(ctx, "inactive_students", func(ctx context.Context, r repository.Reader) error {
		var err error
		out, err = r.InactiveStudents(ctx, f.CollegeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orEmpty(out), nil
}

// Dashboard computes all five reports from one snapshot, with default
// limits.
func (s *ReportService) Dashboard(ctx context.Context, collegeID *int64) (*model.Dashboard, error) {
	var d model.Dashboard
	err := s.run(ctx, "dashboard", func(ctx context.Context, r repository.Reader) error {
		var err error
		if d.EventPopularity, err = r.EventPopularity(ctx, collegeID); err != nil {
			return err
		}
		if d.TopActiveStudents, err = r.TopActiveStudents(ctx, collegeID, DefaultActiveStudentsLimit); err != nil {
			return err
		}
		if d.AverageFeedback, err = r.AverageFeedback(ctx, collegeID); err != nil {
			return err
		}
		if d.TopEventsFeedback, err = r.TopRatedEvents(ctx, collegeID, DefaultTopFeedbackLimit); err != nil {
			return err
		}
		d.InactiveStudents, err = r.InactiveStudents(ctx, collegeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.EventPopularity = orEmpty(d.EventPopularity)
	d.TopActiveStudents = orEmpty(d.TopActiveStudents)
	d.AverageFeedback = orEmpty(d.AverageFeedback)
	d.TopEventsFeedback = orEmpty(d.TopEventsFeedback)
	d.InactiveStudents = orEmpty(d.InactiveStudents)
	return &d, nil
}
