package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/twinpulse/twinpulse/internal/config"
	"github.com/twinpulse/twinpulse/pkg/types"
)

const (
	deliveryTimeout = 10 * time.Second
	queueSize       = 64
)

// Notifier delivers newly raised alerts to the configured webhooks.
// A single background worker sends batches in the order they were queued;
// failures are logged and never reach the caller.
type Notifier struct {
	machineID string
	webhooks  []config.WebhookConfig
	client    *http.Client

	mu     sync.Mutex
	closed bool
	queue  chan []types.Alert
	done   chan struct{}
}

// NewNotifier returns a Notifier for the given machine and targets and starts
// its delivery worker. A Notifier with no webhooks is valid; Notify becomes a
// no-op. Callers must Close it to stop the worker.
func NewNotifier(machineID string, cfg config.AlertsConfig) *Notifier {
	n := &Notifier{
		machineID: machineID,
		webhooks:  cfg.Webhooks,
		client:    &http.Client{Timeout: deliveryTimeout},
		queue:     make(chan []types.Alert, queueSize),
		done:      make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify queues delivery of each alert to every target. It never blocks: when
// the queue is full the batch is dropped and logged.
func (n *Notifier) Notify(fired []types.Alert) {
	if len(n.webhooks) == 0 || len(fired) == 0 {
		return
	}
	batch := make([]types.Alert, len(fired))
	copy(batch, fired)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- batch:
	default:
		slog.Warn("alerts: delivery queue full, dropping batch", "alerts", len(batch))
	}
}

// Close stops accepting alerts and blocks until every queued batch has been
// delivered. It is safe to call more than once.
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)
	for batch := range n.queue {
		for i := range batch {
			n.deliver(&batch[i])
		}
	}
}

// deliver sends a to all configured targets that accept its type.
func (n *Notifier) deliver(a *types.Alert) {
	for _, wh := range n.webhooks {
		if !accepts(wh.MinType, a.Type) {
			continue
		}
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(url, a)
		case "teams":
			err = n.sendTeams(url, a)
		case "http":
			err = n.sendHTTP(url, a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"alert", a.ID,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"alert", a.ID,
				"severity", a.Type,
			)
		}
	}
}

func (n *Notifier) sendSlack(url string, a *types.Alert) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* %s: %s (%.2f > %.2f)",
			severityLabel(a.Type), n.machineID, a.Message, a.Value, a.Threshold),
	})
	return n.post(url, body)
}

func (n *Notifier) sendTeams(url string, a *types.Alert) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Type),
		"summary":    a.Sensor,
		"title":      fmt.Sprintf("%s %s alert on %s", severityLabel(a.Type), a.Sensor, n.machineID),
		"text":       fmt.Sprintf("%s Value %.2f, threshold %.2f.", a.Message, a.Value, a.Threshold),
	}
	body, _ := json.Marshal(payload)
	return n.post(url, body)
}

func (n *Notifier) sendHTTP(url string, a *types.Alert) error {
	body, _ := json.Marshal(map[string]interface{}{
		"machine_id": n.machineID,
		"alert":      a,
	})
	return n.post(url, body)
}

func (n *Notifier) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// accepts reports whether an alert of type typ passes the min filter.
func accepts(min, typ string) bool {
	switch min {
	case types.AlertCritical:
		return typ == types.AlertCritical
	case types.AlertWarning:
		return typ == types.AlertCritical || typ == types.AlertWarning
	default:
		return true
	}
}

func severityLabel(s string) string {
	switch s {
	case types.AlertCritical:
		return "[CRITICAL]"
	case types.AlertWarning:
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case types.AlertCritical:
		return "FF4F6A"
	case types.AlertWarning:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
