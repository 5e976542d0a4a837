package actionqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Топики очереди действий.
const (
	TopicSend   = "telegram-send"
	TopicDelete = "telegram-delete"
)

// KafkaQueue публикует действия в Kafka.
// Ключ сообщения — chat_id, чтобы действия одного чата попадали в одну партицию
// и доставлялись по порядку.
type KafkaQueue struct {
	sender  *kafka.Writer
	deleter *kafka.Writer
}

func NewKafkaQueue(brokers []string) *KafkaQueue {
	return &KafkaQueue{
		sender:  NewWriter(brokers, TopicSend),
		deleter: NewWriter(brokers, TopicDelete),
	}
}

func (q *KafkaQueue) Submit(ctx context.Context, req Request, delaySeconds int) error {
	if req.ChatID == 0 {
		return fmt.Errorf("action request without chat_id")
	}
	req.Delay = delaySeconds

	value, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal action request: %w", err)
	}

	err = q.sender.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(req.ChatID, 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", TopicSend, err)
	}
	return nil
}

func (q *KafkaQueue) SubmitDelete(ctx context.Context, req DeleteRequest) error {
	if req.ChatID == 0 {
		return fmt.Errorf("delete request without chat_id")
	}

	value, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal delete request: %w", err)
	}

	err = q.deleter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(req.ChatID, 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", TopicDelete, err)
	}
	return nil
}

func (q *KafkaQueue) Close() error {
	if err := q.sender.Close(); err != nil {
		return err
	}
	return q.deleter.Close()
}

// NewReader — фабрика для создания ридера Kafka.
// StartOffset: kafka.FirstOffset — полезно при ПЕРВОМ старте новой consumer-group.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		StartOffset:    kafka.FirstOffset,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// NewWriter — фабрика для создания врайтера Kafka.
// Hash-балансировщик: сообщения с одинаковым ключом идут в одну партицию.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
}
