// Package report runs the weekly indirect-cost distribution on a cron schedule.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/events"
	"github.com/josh-kwaku/obras-ledger/internal/logging"
	"github.com/josh-kwaku/obras-ledger/internal/metrics"
	"github.com/josh-kwaku/obras-ledger/internal/service"
	"github.com/josh-kwaku/obras-ledger/internal/weekly"
)

type distributor interface {
	Distribution(ctx context.Context, period domain.Period, pool *decimal.Decimal) (*service.Distribution, error)
}

type ContractLine struct {
	Code     string          `json:"code"`
	Direct   decimal.Decimal `json:"direct"`
	Indirect decimal.Decimal `json:"indirect"`
	Total    decimal.Decimal `json:"total"`
}

type WeeklyReport struct {
	WeekStart     string          `json:"week_start"`
	WeekEnd       string          `json:"week_end"`
	Pool          decimal.Decimal `json:"pool"`
	TotalDirect   decimal.Decimal `json:"total_direct"`
	TotalIndirect decimal.Decimal `json:"total_indirect"`
	Degenerate    bool            `json:"degenerate"`
	Contracts     []ContractLine  `json:"contracts"`
}

type Scheduler struct {
	cron      *cron.Cron
	spec      string
	expenses  distributor
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	ctx       context.Context
}

func NewScheduler(
	ctx context.Context,
	spec string,
	expenses distributor,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		spec:      spec,
		expenses:  expenses,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
	}
}

func (s *Scheduler) Register() error {
	if _, err := s.cron.AddFunc(s.spec, s.weeklyTask); err != nil {
		return fmt.Errorf("register weekly report %q: %w", s.spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("report scheduler started", "cron", s.spec)
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("report scheduler stopped")
}

// PreviousWeek is the last complete Monday-start week before now.
func PreviousWeek(now time.Time) domain.Period {
	thisWeek := weekly.WeekStart(now)
	return domain.Period{From: thisWeek.AddDate(0, 0, -7), To: thisWeek}
}

// RunNow builds and publishes the report for the previous week.
func (s *Scheduler) RunNow(ctx context.Context) (*WeeklyReport, error) {
	period := PreviousWeek(s.now())
	ctx = logging.WithLogger(ctx, s.logger.With("job", "weekly_report"))

	d, err := s.expenses.Distribution(ctx, period, nil)
	if err != nil {
		s.metrics.ReportRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("RunNow: %w", err)
	}

	r := build(d)
	if err := s.publisher.Publish(ctx, events.New(events.TypeWeeklyReport, nil, r)); err != nil {
		s.metrics.EventsPublished.WithLabelValues(string(events.TypeWeeklyReport), "error").Inc()
		s.metrics.ReportRuns.WithLabelValues("error").Inc()
		return r, fmt.Errorf("RunNow: publish: %w", err)
	}
	s.metrics.EventsPublished.WithLabelValues(string(events.TypeWeeklyReport), "ok").Inc()
	s.metrics.ReportRuns.WithLabelValues("ok").Inc()

	s.logger.Info("weekly report published",
		"week_start", r.WeekStart,
		"contracts", len(r.Contracts),
		"pool", r.Pool,
	)
	return r, nil
}

func (s *Scheduler) weeklyTask() {
	if _, err := s.RunNow(s.ctx); err != nil {
		s.logger.Error("weekly report failed", "error", err)
	}
}

func build(d *service.Distribution) *WeeklyReport {
	r := &WeeklyReport{
		WeekStart:     d.Period.From.Format(time.DateOnly),
		WeekEnd:       d.Period.To.AddDate(0, 0, -1).Format(time.DateOnly),
		Pool:          d.Pool,
		TotalDirect:   d.TotalDirect,
		TotalIndirect: d.TotalIndirect,
		Degenerate:    d.Degenerate,
		Contracts:     make([]ContractLine, 0, len(d.Contracts)),
	}
	for _, c := range d.Contracts {
		r.Contracts = append(r.Contracts, ContractLine{
			Code:     c.Code,
			Direct:   c.Direct,
			Indirect: c.Indirect,
			Total:    c.Total,
		})
	}
	return r
}
