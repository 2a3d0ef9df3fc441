package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/smart845/spre/internal/arb"
	"github.com/smart845/spre/internal/logging"
	"github.com/smart845/spre/internal/queue"
)

// Notifier delivers one alert. Errors are reported, never retried.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert arb.Alert) error
}

// Multi fans an alert out to every sink. One failing sink does not stop
// the others; their errors are joined.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Notify(ctx context.Context, alert arb.Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Log writes the alert to the process log.
type Log struct{}

func (Log) Name() string { return "log" }

func (Log) Notify(_ context.Context, alert arb.Alert) error {
	logging.Infof("[alert] %s", alert)
	return nil
}

// Kafka publishes the alert as a JSON event.
type Kafka struct {
	Writer queue.MessageWriter
}

func (k Kafka) Name() string { return "kafka" }

func (k Kafka) Notify(ctx context.Context, alert arb.Alert) error {
	return queue.PublishAlerts(ctx, k.Writer, []arb.Alert{alert})
}
