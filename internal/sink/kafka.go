package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dailysummary/internal/config"
	"dailysummary/internal/finalize"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RowEvent is the payload published for each summary row.
type RowEvent struct {
	RunID   string             `json:"run_id"`
	Date    string             `json:"date"`
	Store   string             `json:"store_name"`
	Metrics map[string]float64 `json:"metrics"`
}

// KafkaPublisher feeds summary rows to a topic, one message per row keyed by
// "date|store" so a store's rows stay on one partition.
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is empty")
	}
	return &KafkaPublisher{
		topic: cfg.Topic,
		w: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}, nil
}

// Publish sends every row of s in a single batch.
func (p *KafkaPublisher) Publish(ctx context.Context, runID string, s finalize.Summary) error {
	if len(s.Rows) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(s.Rows))
	for _, r := range s.Rows {
		ev := RowEvent{RunID: runID, Date: r.Date, Store: r.Store, Metrics: make(map[string]float64, len(s.Columns))}
		for i, c := range s.Columns {
			ev.Metrics[c.Field] = r.Values[i]
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s|%s: %w", r.Date, r.Store, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.Date + "|" + r.Store),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(runID)},
			},
		})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
