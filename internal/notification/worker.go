package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Alert reports a dispenser that is projected to run dry soon.
type Alert struct {
	DispenserID      string
	UniqueCode       string
	Location         string
	DaysUntilEmpty   float64
	ProjectedLevelML float64
}

// payload is the JSON body delivered to the service worker.
type payload struct {
	Title            string  `json:"title"`
	Body             string  `json:"body"`
	DispenserID      string  `json:"dispenser_id"`
	UniqueCode       string  `json:"unique_code"`
	DaysUntilEmpty   float64 `json:"days_until_empty"`
	ProjectedLevelML float64 `json:"projected_level_ml"`
}

// Message renders the human readable text of an alert.
func (a Alert) Message() string {
	label := a.UniqueCode
	if label == "" {
		label = a.DispenserID
	}
	if a.Location != "" {
		label = fmt.Sprintf("%s (%s)", label, a.Location)
	}
	if a.DaysUntilEmpty <= 0 {
		return fmt.Sprintf("Dispenser %s is projected to be empty", label)
	}
	return fmt.Sprintf("Dispenser %s is projected to run out in %.1f days", label, a.DaysUntilEmpty)
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Alert
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Alert, size),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.Named("notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case alert := <-wp.jobs:
			wp.sendAlert(ctx, alert)
		case <-ctx.Done():
			wp.log.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an alert. It blocks while the queue is full and gives up
// when ctx is cancelled.
func (wp *WorkerPool) Dispatch(ctx context.Context, alert Alert) error {
	select {
	case wp.jobs <- alert:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendAlert delivers an alert to every subscription watching the dispenser.
func (wp *WorkerPool) sendAlert(ctx context.Context, alert Alert) {
	subscriptions, err := wp.store.SubscriptionsForDispenser(ctx, alert.DispenserID)
	if err != nil {
		wp.log.Error("failed to load subscriptions", zap.String("dispenser_id", alert.DispenserID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	body, err := json.Marshal(payload{
		Title:            "Refill needed",
		Body:             alert.Message(),
		DispenserID:      alert.DispenserID,
		UniqueCode:       alert.UniqueCode,
		DaysUntilEmpty:   alert.DaysUntilEmpty,
		ProjectedLevelML: alert.ProjectedLevelML,
	})
	if err != nil {
		wp.log.Error("failed to encode alert", zap.Error(err))
		return
	}

	wp.log.Info("sending low level alert",
		zap.String("dispenser_id", alert.DispenserID),
		zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, body)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, body []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(body, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// expired subscriptions are dropped
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
