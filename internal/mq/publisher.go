package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher announces generated documents on the documents exchange.
type Publisher struct {
	conn     *Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a publisher bound to the documents exchange.
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// DocumentEvent is published after a document has been generated and its
// ledger row committed.
type DocumentEvent struct {
	RequestID   string `json:"request_id"`
	FicheNumber string `json:"fiche_number"`
	Engagement  string `json:"engagement_numero,omitempty"`
	Filename    string `json:"filename"`
	ByteSize    int    `json:"byte_size"`
	TotalAmount string `json:"total_amount"`
	EntryCount  int    `json:"entry_count"`
	UrgencyTier string `json:"urgency_tier,omitempty"`
	GeneratedAt string `json:"generated_at"`
}

// PublishDocumentEvent publishes a document.generated event.
func (p *Publisher) PublishDocumentEvent(ctx context.Context, event DocumentEvent, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published document event",
		zap.String("routing_key", routingKey),
		zap.String("fiche_number", event.FicheNumber),
		zap.String("filename", event.Filename),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
