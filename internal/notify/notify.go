package notify

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

type (
	// ProfileMessage announces a profile object written to storage.
	ProfileMessage struct {
		SessionID  string `json:"session_id"`
		ThreadID   int    `json:"thread_id"`
		ObjectName string `json:"object_name"`
		Nodes      int    `json:"nodes"`
		Samples    uint64 `json:"samples"`
		Dropped    uint64 `json:"dropped_samples,omitempty"`
		Timestamp  int64  `json:"timestamp"`
	}

	messageWriter interface {
		WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	}

	// Kafka publishes profile messages to a topic, keyed by session.
	Kafka struct {
		w messageWriter
	}
)

// NewWriter returns a writer tuned for small notification messages.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     kafka.CRC32Balancer{},
		BatchSize:    10,
		Compression:  kafka.Lz4,
		ReadTimeout:  3 * time.Second,
		Topic:        topic,
		WriteTimeout: 3 * time.Second,
	}
}

func NewKafka(w *kafka.Writer) *Kafka {
	return &Kafka{w: w}
}

func (k *Kafka) Notify(ctx context.Context, m ProfileMessage) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.SessionID),
		Value: b,
	})
}
