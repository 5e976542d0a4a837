// Package audit зеркалирует сырые входящие апдейты в RabbitMQ.
// Русский комментарий: Отдельный контур для разбора инцидентов: потребители
// очереди keywarden_updates видят апдейты ровно в том виде, в каком их
// получил бот. Публикация не должна блокировать обработку сообщений —
// ошибки логируются и проглатываются вызывающим.
package audit

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const queueName = "keywarden_updates"

// Publisher держит открытое соединение с RabbitMQ.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher подключается к RabbitMQ и объявляет очередь.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{conn: conn, channel: ch}, nil
}

// Publish отправляет один сырой апдейт.
func (p *Publisher) Publish(raw []byte) error {
	err := p.channel.Publish(
		"",        // exchange
		queueName, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        raw,
		},
	)
	if err != nil {
		return fmt.Errorf("publish error: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
