package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labcompare/push-dispatcher/internal/domain"
	"github.com/labcompare/push-dispatcher/internal/observability"
	"github.com/labcompare/push-dispatcher/internal/provider"
	"github.com/labcompare/push-dispatcher/internal/ratelimit"
	"github.com/labcompare/push-dispatcher/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollInterval    = 5 * time.Minute
	defaultBatchSize       = 50
	defaultDeliveryTimeout = 10 * time.Second

	gatewayScope = "gateway"
)

// CycleLock serializes dispatch cycles across dispatcher instances. Acquire
// returns ok=false when another instance holds the lease.
type CycleLock interface {
	Acquire(ctx context.Context) (release func(context.Context), ok bool, err error)
}

// Dispatcher periodically drains due scheduled tasks: it resolves the target
// user, checks tag eligibility, fans out one gateway call per subscription,
// and deletes the task after the single attempt whatever the outcome.
type Dispatcher struct {
	tasks       repository.TaskRepository
	users       repository.UserRepository
	provider    provider.Provider
	rateLimiter ratelimit.RateLimiter
	lock        CycleLock
	logger      *zap.Logger
	metrics     *observability.Metrics

	interval        time.Duration
	batchSize       int
	deliveryTimeout time.Duration

	running atomic.Bool
	now     func() time.Time
}

func NewDispatcher(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	pushProvider provider.Provider,
	rateLimiter ratelimit.RateLimiter,
	lock CycleLock,
	interval time.Duration,
	batchSize int,
	deliveryTimeout time.Duration,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task repository is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if pushProvider == nil {
		return nil, fmt.Errorf("push provider is required")
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if deliveryTimeout <= 0 {
		deliveryTimeout = defaultDeliveryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		tasks:           tasks,
		users:           users,
		provider:        pushProvider,
		rateLimiter:     rateLimiter,
		lock:            lock,
		logger:          logger,
		interval:        interval,
		batchSize:       batchSize,
		deliveryTimeout: deliveryTimeout,
		now:             time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Start runs an immediate cycle and then one per poll interval until the
// context is canceled.
func (d *Dispatcher) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := d.RunCycle(ctx); err != nil && ctx.Err() == nil {
		d.logger.Error("initial dispatch cycle failed", zap.Error(err))
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				d.logger.Error("dispatch cycle failed", zap.Error(err))
			}
		}
	}
}

// RunCycle processes at most one batch of due tasks. Overlapping invocations
// are skipped, both in-process and across instances via the cycle lock. Only
// the top-level due-task query can fail the cycle; per-task failures are
// contained and logged.
func (d *Dispatcher) RunCycle(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if !d.running.CompareAndSwap(false, true) {
		d.logger.Warn("dispatch cycle already running, skipping")
		d.metrics.IncCycle("skipped")
		return nil
	}
	defer d.running.Store(false)

	if d.lock != nil {
		release, ok, err := d.lock.Acquire(ctx)
		if err != nil {
			d.metrics.IncCycle("error")
			return fmt.Errorf("failed to acquire cycle lock: %w", err)
		}
		if !ok {
			d.logger.Info("dispatch cycle held by another instance, skipping")
			d.metrics.IncCycle("skipped")
			return nil
		}
		defer release(context.WithoutCancel(ctx))
	}

	start := d.now()
	defer func() {
		d.metrics.ObserveCycleDuration(d.now().Sub(start))
	}()

	due, err := d.tasks.GetDue(ctx, start, d.batchSize)
	if err != nil {
		d.metrics.IncCycle("error")
		return fmt.Errorf("failed to fetch due tasks: %w", err)
	}

	if len(due) == 0 {
		d.logger.Debug("no tasks due")
		d.metrics.IncCycle("ok")
		return nil
	}

	var g errgroup.Group
	for i := range due {
		task := due[i]
		g.Go(func() error {
			// Task units are isolated: they log their own failures and never
			// return an error that could abort siblings.
			d.processTask(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Info("dispatch cycle complete",
		zap.Int("dueTasks", len(due)),
		zap.Duration("elapsed", d.now().Sub(start)),
	)
	d.metrics.IncCycle("ok")
	return nil
}

func (d *Dispatcher) processTask(ctx context.Context, task domain.ScheduledTask) {
	logger := d.logger.With(
		zap.String("taskId", task.ID),
		zap.String("userId", task.UserID),
	)
	if task.JourneyID != nil {
		logger = logger.With(zap.String("journeyId", *task.JourneyID))
	}

	user, err := d.users.GetByID(ctx, task.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Recipient gone is a terminal state, not an error.
			logger.Info("task recipient not found, removing task")
			d.finalizeTask(ctx, logger, task.ID)
			d.metrics.IncTaskProcessed(observability.TaskOutcomeRecipientMissing)
			return
		}
		// Leave the task for the next cycle; no delivery was attempted, so
		// at-most-once still holds.
		logger.Error("failed to load task recipient", zap.Error(err))
		return
	}

	if task.Tag != nil && !user.HasTag(*task.Tag) {
		logger.Info("recipient not eligible for tagged task, removing task",
			zap.String("tag", *task.Tag),
		)
		d.finalizeTask(ctx, logger, task.ID)
		d.metrics.IncTaskProcessed(observability.TaskOutcomeIneligible)
		return
	}

	if len(user.Subscriptions) == 0 {
		logger.Info("recipient has no subscriptions, removing task")
		d.finalizeTask(ctx, logger, task.ID)
		d.metrics.IncTaskProcessed(observability.TaskOutcomeNoSubscriptions)
		return
	}

	succeeded, failed, gone := d.deliverAll(ctx, logger, user.Subscriptions, task.Payload)

	if len(gone) > 0 {
		if err := d.users.RemoveSubscriptions(ctx, user.ID, gone); err != nil {
			logger.Error("failed to prune stale subscriptions", zap.Error(err))
		} else {
			logger.Info("pruned stale subscriptions", zap.Int("count", len(gone)))
			d.metrics.AddSubscriptionsPruned(len(gone))
		}
	}

	d.finalizeTask(ctx, logger, task.ID)

	switch {
	case failed == 0:
		logger.Info("task delivered", zap.Int("subscriptions", succeeded))
		d.metrics.IncTaskProcessed(observability.TaskOutcomeDelivered)
	case succeeded > 0:
		logger.Warn("task delivered partially",
			zap.Int("succeeded", succeeded),
			zap.Int("failed", failed),
		)
		d.metrics.IncTaskProcessed(observability.TaskOutcomePartialFailure)
	default:
		logger.Warn("task delivery failed for all subscriptions", zap.Int("failed", failed))
		d.metrics.IncTaskProcessed(observability.TaskOutcomeFailed)
	}
}

// deliverAll fans out one gateway call per subscription and waits for all of
// them to settle. Failures are recorded, never propagated.
func (d *Dispatcher) deliverAll(
	ctx context.Context,
	logger *zap.Logger,
	subscriptions []domain.Subscription,
	payload domain.Payload,
) (succeeded, failed int, gone []string) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := range subscriptions {
		sub := subscriptions[i]
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := d.deliverOne(ctx, sub, payload)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}

			failed++
			logger.Warn("delivery failed",
				zap.String("endpoint", sub.Endpoint),
				zap.Error(err),
			)
			if provider.IsGone(err) {
				gone = append(gone, sub.Endpoint)
			}
		}()
	}

	wg.Wait()
	return succeeded, failed, gone
}

func (d *Dispatcher) deliverOne(ctx context.Context, sub domain.Subscription, payload domain.Payload) error {
	d.metrics.IncDeliveriesInFlight()
	defer d.metrics.DecDeliveriesInFlight()

	if d.rateLimiter != nil {
		if err := d.rateLimiter.Wait(ctx, gatewayScope); err != nil {
			d.metrics.IncDelivery(false)
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
	defer cancel()

	start := d.now()
	_, err := d.provider.Send(callCtx, sub, payload)
	d.metrics.ObserveDeliveryDuration(d.now().Sub(start))
	d.metrics.IncDelivery(err == nil)

	return err
}

// finalizeTask removes the task from the store regardless of the delivery
// outcome, which is what makes processing at-most-once. A delete failure is
// logged only; a missing row means a sibling instance finalized it first.
func (d *Dispatcher) finalizeTask(ctx context.Context, logger *zap.Logger, taskID string) {
	err := d.tasks.Delete(ctx, taskID)
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("task already finalized elsewhere")
		return
	}
	logger.Error("failed to delete task after attempt", zap.Error(err))
}
