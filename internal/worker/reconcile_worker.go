package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campushq/event-service/internal/repository"
	"github.com/campushq/event-service/internal/service"
	"github.com/campushq/event-service/pkg/logger"
	"github.com/campushq/event-service/pkg/retry"
)

// ReconcileWorkerConfig contains configuration for the reconcile worker
type ReconcileWorkerConfig struct {
	// ScanInterval is the interval between reconciliation sweeps
	ScanInterval time.Duration
	// BatchSize is the number of events checked in each sweep
	BatchSize int
}

// DefaultReconcileWorkerConfig returns default configuration
func DefaultReconcileWorkerConfig() *ReconcileWorkerConfig {
	return &ReconcileWorkerConfig{
		ScanInterval: 5 * time.Minute,
		BatchSize:    100,
	}
}

// ReconcileWorker periodically rebuilds participant counters from
// registration rows. The counter is a cache; registrations are the record
// of truth.
type ReconcileWorker struct {
	eventRepo    repository.EventRepository
	eventService service.EventService
	config       *ReconcileWorkerConfig
	retrier      *retry.Retrier
	log          *logger.Logger
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool

	// Stats
	totalScanned  int64
	totalAdjusted int64
	lastScanTime  time.Time
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(
	eventRepo repository.EventRepository,
	eventService service.EventService,
	config *ReconcileWorkerConfig,
) *ReconcileWorker {
	if config == nil {
		config = DefaultReconcileWorkerConfig()
	}
	return &ReconcileWorker{
		eventRepo:    eventRepo,
		eventService: eventService,
		config:       config,
		retrier: retry.New(&retry.Config{
			MaxRetries:      2,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		}),
		log:    logger.Get(),
		stopCh: make(chan struct{}),
	}
}

// Start starts the reconcile worker
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("reconcile worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info(fmt.Sprintf("Starting reconcile worker (interval=%s, batch=%d)",
		w.config.ScanInterval, w.config.BatchSize))

	w.wg.Add(1)
	go w.sweep(ctx)

	return nil
}

// Stop stops the reconcile worker and waits for the current sweep
func (w *ReconcileWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping reconcile worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Reconcile worker stopped")
}

func (w *ReconcileWorker) sweep(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.reconcileBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.reconcileBatch(ctx)
		}
	}
}

func (w *ReconcileWorker) reconcileBatch(ctx context.Context) {
	w.mu.Lock()
	w.lastScanTime = time.Now()
	w.mu.Unlock()

	ids, err := w.eventRepo.ListReconcilable(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error(fmt.Sprintf("Failed to list events for reconciliation: %v", err))
		return
	}
	if len(ids) == 0 {
		return
	}

	adjusted := 0
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		eventID := id
		result := w.retrier.Do(ctx, func(ctx context.Context) error {
			resp, err := w.eventService.ReconcileEvent(ctx, eventID)
			if err != nil {
				return err
			}
			if resp.Adjusted {
				adjusted++
				w.log.Warn(fmt.Sprintf("Counter drift fixed: event=%s previous=%d actual=%d",
					eventID, resp.PreviousCount, resp.ActualCount))
			}
			return nil
		})
		if result.Err != nil {
			w.log.Error(fmt.Sprintf("Failed to reconcile event %s after %d attempts: %v",
				eventID, result.Attempts, result.Err))
		}
	}

	w.mu.Lock()
	w.totalScanned += int64(len(ids))
	w.totalAdjusted += int64(adjusted)
	w.mu.Unlock()

	if adjusted > 0 {
		w.log.Info(fmt.Sprintf("Reconcile sweep done: scanned=%d adjusted=%d", len(ids), adjusted))
	}
}

// Stats returns cumulative worker statistics
func (w *ReconcileWorker) Stats() (scanned, adjusted int64, lastScan time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalScanned, w.totalAdjusted, w.lastScanTime
}
