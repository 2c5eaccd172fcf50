package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/logger"
)

// Observer is told about every delivery attempt. Outcome is sent, failed,
// dropped or skipped.
type Observer interface {
	NotificationResult(template, outcome string)
}

type nopObserver struct{}

func (nopObserver) NotificationResult(string, string) {}

type job struct {
	ctx   context.Context
	email Email
}

// Dispatcher implements domain.Notifier. Notify renders the message and queues
// it; a fixed pool of workers hands queued emails to the Sender. A full queue
// drops the message.
type Dispatcher struct {
	renderer    *Renderer
	sender      Sender
	observer    Observer
	sendTimeout time.Duration

	queue chan job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	Observer    Observer
}

func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	d := &Dispatcher{
		renderer:    NewRenderer(),
		sender:      sender,
		observer:    cfg.Observer,
		sendTimeout: cfg.SendTimeout,
		queue:       make(chan job, cfg.QueueSize),
	}
	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, to domain.Recipient, template string, params map[string]any) {
	log := logger.WithContext(ctx)
	if to.Email == "" {
		log.Debug().Str("template", template).Str("user_id", to.UserID).Msg("Notification skipped: no email address")
		d.observer.NotificationResult(template, "skipped")
		return
	}
	msg, err := d.renderer.Render(template, params)
	if err != nil {
		log.Error().Err(err).Msg("Notification render failed")
		d.observer.NotificationResult(template, "failed")
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.observer.NotificationResult(template, "dropped")
		return
	}
	// The request context is cancelled when the handler returns; keep its values only.
	j := job{ctx: context.WithoutCancel(ctx), email: Email{
		To:      to.Email,
		ToName:  to.Name,
		Subject: msg.Subject(),
		Text:    msg.Text(),
		HTML:    textToHTML(msg.Text()),
		Tag:     template,
	}}
	select {
	case d.queue <- j:
	default:
		log.Warn().Str("template", template).Str("to", to.Email).Msg("Notification queue full, message dropped")
		d.observer.NotificationResult(template, "dropped")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.send(j)
	}
}

func (d *Dispatcher) send(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.sendTimeout)
	defer cancel()
	if err := d.sender.Send(ctx, j.email); err != nil {
		logger.WithContext(ctx).Error().Err(err).
			Str("template", j.email.Tag).
			Str("to", j.email.To).
			Msg("Notification delivery failed")
		d.observer.NotificationResult(j.email.Tag, "failed")
		return
	}
	d.observer.NotificationResult(j.email.Tag, "sent")
}

// Close stops accepting messages and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("notification queue not drained"), ctx.Err())
	}
}
