package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smart845/spre/internal/arb"
)

// MessageWriter is the subset of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// AlertEvent is the envelope published for every alert.
type AlertEvent struct {
	Version   int       `json:"version"`
	Key       string    `json:"key"`
	Alert     arb.Alert `json:"alert"`
	Text      string    `json:"text"`
	EmittedAt time.Time `json:"emitted_at"`
}

const eventVersion = 1

func PublishAlerts(ctx context.Context, writer MessageWriter, alerts []arb.Alert) error {
	if writer == nil || len(alerts) == 0 {
		return nil
	}
	msgs, err := buildMessages(alerts, time.Now().UTC())
	if err != nil {
		return err
	}
	return writer.WriteMessages(ctx, msgs...)
}

func buildMessages(alerts []arb.Alert, emitted time.Time) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(alerts))
	for _, a := range alerts {
		payload, err := json.Marshal(AlertEvent{
			Version:   eventVersion,
			Key:       a.Key,
			Alert:     a,
			Text:      a.Format(),
			EmittedAt: emitted,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal alert %s: %w", a.Key, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(a.Key), Value: payload, Time: emitted})
	}
	return msgs, nil
}
