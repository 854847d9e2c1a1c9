package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"guild-quiz-bot/internal/domain"
)

// Publisher sends quiz events to a durable RabbitMQ queue.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	mu      sync.Mutex
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{conn: conn, channel: channel, queue: queue}, nil
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

// PublishCompleted implements app.EventPublisher.
func (p *Publisher) PublishCompleted(ctx context.Context, event domain.CompletedEvent) error {
	body, err := encodeCompleted(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         completedEventType,
			MessageId:    event.AnswerID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish completed event: %w", err)
	}
	return nil
}

const completedEventType = "quiz.completed"

type envelope struct {
	Type    string                `json:"type"`
	Payload domain.CompletedEvent `json:"payload"`
}

func encodeCompleted(event domain.CompletedEvent) ([]byte, error) {
	body, err := json.Marshal(envelope{Type: completedEventType, Payload: event})
	if err != nil {
		return nil, fmt.Errorf("marshal completed event: %w", err)
	}
	return body, nil
}
