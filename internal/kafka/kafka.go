package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const DefaultAlertTopic = "spread.alerts"

// Brokers trims and de-blanks a configured broker list.
func Brokers(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func Topic(configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	return DefaultAlertTopic
}

var (
	errNoBrokers = errors.New("no brokers configured")

	dialer     = &kafka.Dialer{Timeout: 5 * time.Second}
	retryEvery = time.Second
)

// WaitForBroker dials the first broker until it accepts a connection or ctx
// ends.
func WaitForBroker(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errNoBrokers
	}
	var lastErr error
	for {
		conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
		if err == nil {
			return conn.Close()
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("broker %s not reachable: %w (last error: %v)", brokers[0], ctx.Err(), lastErr)
		case <-time.After(retryEvery):
		}
	}
}

// EnsureTopic creates a single-partition alert topic through the cluster
// controller. An existing topic is left as is.
func EnsureTopic(ctx context.Context, brokers []string, topic string) error {
	if len(brokers) == 0 {
		return errNoBrokers
	}
	ctrl, err := dialController(ctx, brokers[0])
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}); err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}

func dialController(ctx context.Context, broker string) (*kafka.Conn, error) {
	conn, err := dialer.DialContext(ctx, "tcp", broker)
	if err != nil {
		return nil, fmt.Errorf("dial broker %s: %w", broker, err)
	}
	defer conn.Close()

	b, err := conn.Controller()
	if err != nil {
		return nil, fmt.Errorf("lookup controller via %s: %w", broker, err)
	}
	ctrl, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(b.Host, strconv.Itoa(b.Port)))
	if err != nil {
		return nil, fmt.Errorf("dial controller %s:%d: %w", b.Host, b.Port, err)
	}
	return ctrl, nil
}

// NewWriter returns an alert writer. Messages are hashed by key so every
// alert for one key lands on the same partition.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}
}
