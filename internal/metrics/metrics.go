package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/campushq/event-service/pkg/telemetry"
)

var (
	// Registration counters
	RegistrationsCreated   *telemetry.Counter
	RegistrationsCancelled *telemetry.Counter
	RegistrationsRejected  *telemetry.Counter
	CheckIns               *telemetry.Counter

	// Event lifecycle counters
	EventsCreated     *telemetry.Counter
	EventsReviewed    *telemetry.Counter
	EventsCancelled   *telemetry.Counter
	TicketReissues    *telemetry.Counter
	CounterDriftFixed *telemetry.Counter

	// Error tracking
	ErrorsTotal *telemetry.Counter

	// Histograms
	RequestDuration *telemetry.Histogram

	// Gauges
	ActiveRegistrations *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all event service metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	RegistrationsCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "event_registrations_total",
		Description: "Total number of registrations created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RegistrationsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "event_registration_cancellations_total",
		Description: "Total number of registrations cancelled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RegistrationsRejected, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "event_registration_rejections_total",
		Description: "Total number of registrations rejected by reason",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CheckIns, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "event_checkins_total",
		Description: "Total number of successful check-ins",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	EventsCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "events_created_total",
		Description: "Total number of events created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	EventsReviewed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "events_reviewed_total",
		Description: "Total number of review decisions by outcome",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	EventsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "events_cancelled_total",
		Description: "Total number of events cancelled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TicketReissues, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "event_ticket_reissues_total",
		Description: "Total number of ticket identifier collisions retried",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CounterDriftFixed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "event_counter_drift_corrections_total",
		Description: "Total number of participant counters corrected by reconciliation",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ErrorsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "event_errors_total",
		Description: "Total number of errors by type",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RequestDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "event_request_duration_seconds",
		Description: "HTTP request duration in seconds",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
	if err != nil {
		return err
	}

	ActiveRegistrations, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "event_active_registrations",
		Description: "Current number of confirmed registrations",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordRegistration records a successful registration
func RecordRegistration(ctx context.Context, eventID string) {
	if RegistrationsCreated != nil {
		RegistrationsCreated.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
	if ActiveRegistrations != nil {
		ActiveRegistrations.Inc(ctx)
	}
}

// RecordRegistrationRejected records a registration turned away by reason
func RecordRegistrationRejected(ctx context.Context, eventID, reason string) {
	if RegistrationsRejected != nil {
		RegistrationsRejected.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.String("reason", reason),
		)
	}
}

// RecordCancellation records a registration cancellation
func RecordCancellation(ctx context.Context, eventID string) {
	if RegistrationsCancelled != nil {
		RegistrationsCancelled.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
	if ActiveRegistrations != nil {
		ActiveRegistrations.Dec(ctx)
	}
}

// RecordCheckIn records a successful check-in
func RecordCheckIn(ctx context.Context, eventID string) {
	if CheckIns != nil {
		CheckIns.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
}

// RecordEventCreated records an event creation
func RecordEventCreated(ctx context.Context, eventType string) {
	if EventsCreated != nil {
		EventsCreated.Inc(ctx,
			attribute.String("type", eventType),
		)
	}
}

// RecordReview records an approve or reject decision
func RecordReview(ctx context.Context, eventID string, approved bool) {
	if EventsReviewed != nil {
		outcome := "rejected"
		if approved {
			outcome = "approved"
		}
		EventsReviewed.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.String("outcome", outcome),
		)
	}
}

// RecordEventCancelled records an event cancellation
func RecordEventCancelled(ctx context.Context, eventID string) {
	if EventsCancelled != nil {
		EventsCancelled.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
}

// RecordTicketReissue records a ticket identifier collision retry
func RecordTicketReissue(ctx context.Context, eventID string) {
	if TicketReissues != nil {
		TicketReissues.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
}

// RecordDriftCorrection records a counter repaired by reconciliation
func RecordDriftCorrection(ctx context.Context, eventID string, delta int64) {
	if CounterDriftFixed != nil {
		CounterDriftFixed.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.Int64("delta", delta),
		)
	}
}

// RecordError records an error by type and operation
func RecordError(ctx context.Context, errorType, operation string) {
	if ErrorsTotal != nil {
		ErrorsTotal.Inc(ctx,
			attribute.String("error_type", errorType),
			attribute.String("operation", operation),
		)
	}
}

// RecordRequestDuration records HTTP request duration
func RecordRequestDuration(ctx context.Context, operation string, durationSeconds float64) {
	if RequestDuration != nil {
		RequestDuration.Record(ctx, durationSeconds,
			attribute.String("operation", operation),
		)
	}
}
