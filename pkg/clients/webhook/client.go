// Package webhook forwards accepted metric publications to an HTTP endpoint.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

const (
	notifyTimeout = 10 * time.Second
	queueSize     = 64
)

// Payload is the JSON body POSTed for every metric update.
type Payload struct {
	Key        string    `json:"key"`
	Value      float64   `json:"value"`
	ComputedAt time.Time `json:"computed_at"`
	Source     string    `json:"source"`
}

// apiError captures an error body returned by the receiver, if any.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Notifier is a resty-backed metric webhook client. Snapshots given to
// Handle are posted one at a time by a single worker, in arrival order.
type Notifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan models.MetricSnapshot
	done   chan struct{}
}

// NewNotifier builds a notifier posting to url and starts its worker.
// Call Close to stop it.
func NewNotifier(url string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(notifyTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	n := &Notifier{
		httpClient: restyClient,
		url:        url,
		logger:     logger,
		queue:      make(chan models.MetricSnapshot, queueSize),
		done:       make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify POSTs snap to the webhook.
func (n *Notifier) Notify(ctx context.Context, snap models.MetricSnapshot) error {
	apiErr := new(apiError)

	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(Payload{
			Key:        snap.Key,
			Value:      snap.Value,
			ComputedAt: snap.ComputedAt,
			Source:     snap.Source,
		}).
		SetError(apiErr).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("notify metric %s: %w", snap.Key, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Error
		if message == "" {
			message = apiErr.Message
		}
		return fmt.Errorf("metric webhook error: code=%d, message=%s", resp.StatusCode(), message)
	}

	n.logger.Debug("metric forwarded", zap.String("key", snap.Key), zap.Int("status", resp.StatusCode()))
	return nil
}

// Handle queues snap for the worker so publishers are not held up by the
// receiver. Suitable as a metric bus handler. When the queue is full the
// snapshot is dropped; a later one for the same key supersedes it anyway.
func (n *Notifier) Handle(snap models.MetricSnapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- snap:
	default:
		n.logger.Warn("webhook queue full, dropping metric", zap.String("key", snap.Key))
	}
}

// Close stops accepting snapshots and waits for queued ones to be sent.
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}

// run posts queued snapshots in order, skipping any that is not newer than
// the last one sent for its key.
func (n *Notifier) run() {
	defer close(n.done)
	sent := make(map[string]time.Time)
	for snap := range n.queue {
		if last, ok := sent[snap.Key]; ok && !snap.ComputedAt.After(last) {
			n.logger.Debug("skip stale metric", zap.String("key", snap.Key), zap.Time("computed_at", snap.ComputedAt))
			continue
		}
		sent[snap.Key] = snap.ComputedAt

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		if err := n.Notify(ctx, snap); err != nil {
			n.logger.Warn("failed to forward metric", zap.String("key", snap.Key), zap.Error(err))
		}
		cancel()
	}
}
