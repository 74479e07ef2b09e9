package notification

import (
	"context"
	"sync"
	"time"

	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/models"
)

// Alert kinds as they appear in logs and the event feed.
const (
	KindExpiredServices = "expired_services"
	KindUpselling       = "upselling_service"
)

// Channel publishes a payload with its correlation id to one broker topic.
type Channel interface {
	Publish(ctx context.Context, payload interface{}, correlationID string) error
}

// Event is a dispatch lifecycle notification for the operator feed.
type Event struct {
	Type          string      `json:"type"` // queued, delivered, exhausted
	Kind          string      `json:"kind"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Attempts      int         `json:"attempts,omitempty"`
	Payload       interface{} `json:"payload,omitempty"`
	Error         string      `json:"error,omitempty"`
	At            time.Time   `json:"at"`
}

// EventSink receives dispatch lifecycle events. Implementations must not
// block.
type EventSink interface {
	Publish(evt Event)
}

type task struct {
	models.Task
	channel Channel
}

// Dispatcher delivers alerts asynchronously on a bounded worker pool,
// separate from request handling. Each task retries with exponential backoff;
// after the final attempt fails the recovery hook logs the permanent failure
// with the original payload and cause, and nothing is re-raised. When the
// queue is full, Dispatch blocks the caller until a worker frees a slot.
type Dispatcher struct {
	expired Channel
	upsell  Channel
	logger  *logging.Logger
	policy  Policy
	tasks   chan *task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	events  EventSink
}

// NewDispatcher constructs a Dispatcher with the given channels and retry
// policy.
func NewDispatcher(expired, upsell Channel, policy Policy, queueSize int, logger *logging.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		expired: expired,
		upsell:  upsell,
		logger:  logger,
		policy:  policy,
		tasks:   make(chan *task, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetEventSink attaches the operator event feed. Must be called before Start.
func (d *Dispatcher) SetEventSink(sink EventSink) {
	d.events = sink
}

// Start launches the worker pool.
func (d *Dispatcher) Start(wg *sync.WaitGroup, workers int) {
	d.wg = wg
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Close stops the workers. In-flight attempts are abandoned; queued tasks are
// dropped. There is no user-facing cancel for individual tasks.
func (d *Dispatcher) Close() {
	d.cancel()
}

// DispatchExpired enqueues an expired-services alert for delivery.
func (d *Dispatcher) DispatchExpired(ctx context.Context, alert models.ExpiredServicesAlert, correlationID string) error {
	return d.enqueue(ctx, &task{
		Task: models.Task{
			CorrelationID: correlationID,
			Kind:          KindExpiredServices,
			Payload:       alert,
			State:         models.TaskCreated,
			CreatedAt:     time.Now(),
		},
		channel: d.expired,
	})
}

// DispatchUpsell enqueues an upselling alert for delivery.
func (d *Dispatcher) DispatchUpsell(ctx context.Context, alert models.UpsellAlert, correlationID string) error {
	return d.enqueue(ctx, &task{
		Task: models.Task{
			CorrelationID: correlationID,
			Kind:          KindUpselling,
			Payload:       alert,
			State:         models.TaskCreated,
			CreatedAt:     time.Now(),
		},
		channel: d.upsell,
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, t *task) error {
	select {
	case d.tasks <- t:
		d.logger.WithCorrelation(t.CorrelationID).Infof("Queued %s task", t.Kind)
		d.emit(Event{Type: "queued", Kind: t.Kind, CorrelationID: t.CorrelationID, Payload: t.Payload, At: time.Now()})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.ctx.Done():
		return d.ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			d.logger.Infof("Dispatch worker %d stopped", id)
			return
		case t := <-d.tasks:
			d.handleTask(t)
		}
	}
}

func (d *Dispatcher) handleTask(t *task) {
	t.State = models.TaskInFlight
	log := d.logger.WithCorrelation(t.CorrelationID)

	runner := Runner{
		Policy: d.policy,
		Recover: func(err error) {
			log.WithField("payload", t.Payload).
				Errorf("FINAL FAILURE: could not deliver %s notification after all retries: %v", t.Kind, err)
		},
	}

	err := runner.Run(d.ctx, func(attempt int) error {
		t.Attempts = attempt
		log.Infof("Sending %s notification, attempt %d/%d", t.Kind, attempt, d.policy.MaxAttempts)
		if err := t.channel.Publish(d.ctx, t.Payload, t.CorrelationID); err != nil {
			log.Errorf("Attempt %d/%d failed for %s notification: %v", attempt, d.policy.MaxAttempts, t.Kind, err)
			return err
		}
		return nil
	})
	if err != nil {
		t.State = models.TaskExhausted
		d.emit(Event{Type: "exhausted", Kind: t.Kind, CorrelationID: t.CorrelationID, Attempts: t.Attempts, Payload: t.Payload, Error: err.Error(), At: time.Now()})
		return
	}

	t.State = models.TaskDelivered
	log.Infof("Delivered %s notification after %d attempt(s)", t.Kind, t.Attempts)
	d.emit(Event{Type: "delivered", Kind: t.Kind, CorrelationID: t.CorrelationID, Attempts: t.Attempts, At: time.Now()})
}

func (d *Dispatcher) emit(evt Event) {
	if d.events != nil {
		d.events.Publish(evt)
	}
}
