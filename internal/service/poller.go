package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quillforge/quill/internal/config"
)

// ScheduleOutcome is the per-schedule result of one poll cycle.
type ScheduleOutcome struct {
	ScheduleID string `json:"scheduleId"`
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	BlogID     string `json:"blogId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchResult aggregates one poll cycle. Zero due schedules is a no-op
// result, not an error.
type BatchResult struct {
	Success            bool              `json:"success"`
	SchedulesToExecute int               `json:"schedulesToExecute"`
	ScheduleIDs        []string          `json:"scheduleIds,omitempty"`
	Results            []ScheduleOutcome `json:"results,omitempty"`
}

// Poller discovers due schedules and triggers each one independently. It can
// run on an internal ticker or be driven externally through the
// check-schedules endpoint; both paths share CheckSchedules.
type Poller struct {
	config   *config.SchedulerConfig
	store    *ScheduleStore
	executor *Executor
	claimTTL time.Duration
	logger   *zap.Logger
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPoller(cfg *config.SchedulerConfig, store *ScheduleStore, executor *Executor, logger *zap.Logger) *Poller {
	claimTTL, err := time.ParseDuration(cfg.ClaimTTL)
	if err != nil || claimTTL <= 0 {
		claimTTL = 5 * time.Minute
	}

	return &Poller{
		config:   cfg,
		store:    store,
		executor: executor,
		claimTTL: claimTTL,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// CheckSchedules runs one poll cycle: a single due threshold for the whole
// batch, concurrent execution, and full per-schedule failure isolation.
func (p *Poller) CheckSchedules(ctx context.Context) *BatchResult {
	now := time.Now().UTC()

	due, err := p.store.Due(now)
	if err != nil {
		p.logger.Error("Failed to query due schedules", zap.Error(err))
		return &BatchResult{Success: false, SchedulesToExecute: 0}
	}

	if len(due) == 0 {
		return &BatchResult{Success: true, SchedulesToExecute: 0}
	}

	ids := make([]string, len(due))
	for i, schedule := range due {
		ids[i] = schedule.ID
	}

	p.logger.Info("Executing due schedules",
		zap.Int("count", len(due)),
		zap.Strings("ids", ids))

	outcomes := make([]ScheduleOutcome, len(due))
	var wg sync.WaitGroup
	for i, schedule := range due {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			outcomes[i] = p.executeOne(ctx, id, now)
		}(i, schedule.ID)
	}
	wg.Wait()

	return &BatchResult{
		Success:            true,
		SchedulesToExecute: len(due),
		ScheduleIDs:        ids,
		Results:            outcomes,
	}
}

// executeOne claims and fires a single schedule, converting every failure
// into an outcome record so one schedule can never abort another.
func (p *Poller) executeOne(ctx context.Context, id string, now time.Time) ScheduleOutcome {
	if err := p.store.Claim(id, now, p.claimTTL); err != nil {
		p.logger.Info("Skipping schedule held by another poller",
			zap.String("id", id))
		return ScheduleOutcome{ScheduleID: id, Success: false, Skipped: true, Error: err.Error()}
	}

	result, err := p.executor.Execute(ctx, id)
	if err != nil {
		p.logger.Error("Schedule execution failed",
			zap.String("id", id), zap.Error(err))
		return ScheduleOutcome{ScheduleID: id, Success: false, Error: err.Error()}
	}

	return ScheduleOutcome{ScheduleID: id, Success: true, BlogID: result.BlogID}
}

// Start begins the internal poll loop when enabled.
func (p *Poller) Start(ctx context.Context) error {
	if !p.config.Enabled {
		p.logger.Info("Internal poll loop is disabled")
		return nil
	}

	interval, err := time.ParseDuration(p.config.PollInterval)
	if err != nil {
		p.logger.Error("Invalid poll interval", zap.String("interval", p.config.PollInterval), zap.Error(err))
		return err
	}

	p.logger.Info("Starting poller", zap.String("poll_interval", p.config.PollInterval))

	p.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-p.ticker.C:
				p.runCycle(ctx)
			case <-p.stopCh:
				p.logger.Info("Poller stopped")
				return
			case <-ctx.Done():
				p.logger.Info("Poller context cancelled")
				return
			}
		}
	}()

	return nil
}

// Stop stops the internal poll loop. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.ticker != nil {
			p.ticker.Stop()
		}
		close(p.stopCh)
		p.logger.Info("Poller shutdown completed")
	})
}

func (p *Poller) runCycle(ctx context.Context) {
	start := time.Now()
	result := p.CheckSchedules(ctx)
	duration := time.Since(start)

	if result.SchedulesToExecute > 0 {
		p.logger.Info("Poll cycle completed",
			zap.Int("executed", result.SchedulesToExecute),
			zap.Duration("duration", duration))
	} else {
		p.logger.Debug("Poll cycle completed with nothing due",
			zap.Duration("duration", duration))
	}
}
