package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"

	"github.com/robfig/cron/v3"
)

// DefaultOverdueSchedule runs the scan every thirty seconds.
const DefaultOverdueSchedule = "*/30 * * * * *"

// activeStatuses are the statuses with a phase that can run late.
var activeStatuses = []order.Status{
	order.Accepted,
	order.AcceptedByDriver,
	order.Prepared,
	order.PickedUp,
}

// OrderLister pages through orders; queries.ListOrdersQueryHandler
// satisfies it.
type OrderLister interface {
	Handle(ctx context.Context, query queries.ListOrdersQuery) ([]*order.Order, error)
}

// OverdueGauge receives the number of running phases past their estimate.
type OverdueGauge interface {
	Overdue(phase order.Phase, count int)
}

// OverdueMonitorJob scans active orders for phases running past their
// estimate, reports the counts per phase and logs every order the first
// time one of its phases goes overdue.
type OverdueMonitorJob struct {
	lister   OrderLister
	engine   services.ProgressEngine
	clock    services.Clock
	gauge    OverdueGauge
	viewer   actor.Actor
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	overdue map[overdueKey]struct{}
}

type overdueKey struct {
	id    kernel.UUID
	phase order.Phase
}

// OverdueOption configures an OverdueMonitorJob.
type OverdueOption func(*OverdueMonitorJob)

// WithOverdueSchedule replaces DefaultOverdueSchedule. The expression has a
// seconds field.
func WithOverdueSchedule(schedule string) OverdueOption {
	return func(j *OverdueMonitorJob) {
		if schedule != "" {
			j.schedule = schedule
		}
	}
}

func NewOverdueMonitorJob(
	lister OrderLister,
	clock services.Clock,
	gauge OverdueGauge,
	logger *slog.Logger,
	opts ...OverdueOption,
) (*OverdueMonitorJob, error) {
	viewer, err := actor.New(actor.Admin, kernel.NewUUID())
	if err != nil {
		return nil, err
	}

	j := &OverdueMonitorJob{
		lister:   lister,
		engine:   services.NewProgressEngine(),
		clock:    clock,
		gauge:    gauge,
		viewer:   viewer,
		schedule: DefaultOverdueSchedule,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With("component", "overdue_monitor_job"),
		overdue:  make(map[overdueKey]struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Start schedules Check.
func (j *OverdueMonitorJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx := context.Background()
		if err := j.Check(ctx); err != nil {
			j.logger.ErrorContext(ctx, "Overdue scan failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Overdue monitor job started", "schedule", j.schedule)
	return nil
}

// Stop waits for a running scan to finish.
func (j *OverdueMonitorJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Overdue monitor job stopped")
}

// Check runs one scan over all active orders.
func (j *OverdueMonitorJob) Check(ctx context.Context) error {
	criteria := services.Criteria{Statuses: activeStatuses}
	now := j.clock.Now()

	counts := make(map[order.Phase]int, len(order.Phases()))
	current := make(map[overdueKey]struct{})

	for offset := uint64(0); ; offset += queries.MaxListLimit {
		query, err := queries.NewListOrdersQuery(j.viewer, criteria, nil, queries.MaxListLimit, offset)
		if err != nil {
			return err
		}
		page, err := j.lister.Handle(ctx, query)
		if err != nil {
			return fmt.Errorf("list active orders: %w", err)
		}

		for _, o := range page {
			for _, phase := range order.Phases() {
				if !o.IsTakeout() && phase != order.PhasePrepare {
					continue
				}
				p := j.engine.Phase(o, phase, now)
				if !p.Started || p.Completed || !p.Overdue {
					continue
				}
				counts[phase]++
				current[overdueKey{id: o.ID(), phase: phase}] = struct{}{}
			}
		}

		if len(page) < queries.MaxListLimit {
			break
		}
	}

	for _, phase := range order.Phases() {
		j.gauge.Overdue(phase, counts[phase])
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for key := range current {
		if _, seen := j.overdue[key]; !seen {
			j.logger.WarnContext(ctx, "Order phase is overdue", "order_id", key.id.String(), "phase", key.phase.String())
		}
	}
	j.overdue = current
	return nil
}
