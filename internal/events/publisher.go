package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// TicketTransferred is emitted once a transfer has been committed, so that
// downstream mailers can notify both the previous and the new holder.
type TicketTransferred struct {
	EventID       string    `json:"event_id"`
	Ref           string    `json:"ref"`
	PreviousName  string    `json:"previous_name"`
	PreviousEmail string    `json:"previous_email"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	OriginalEmail string    `json:"original_email"`
	TransferredAt time.Time `json:"transferred_at"`
}

type Publisher interface {
	PublishTicketTransferred(ctx context.Context, msg TicketTransferred) error
	Close() error
}

func NewTicketTransferred(ref, previousName, previousEmail, name, email, originalEmail string) TicketTransferred {
	return TicketTransferred{
		EventID:       uuid.NewString(),
		Ref:           ref,
		PreviousName:  previousName,
		PreviousEmail: previousEmail,
		Name:          name,
		Email:         email,
		OriginalEmail: originalEmail,
		TransferredAt: time.Now().UTC(),
	}
}

type NopPublisher struct{}

func (NopPublisher) PublishTicketTransferred(context.Context, TicketTransferred) error { return nil }
func (NopPublisher) Close() error                                                    { return nil }

type RabbitPublisher struct {
	Conn       *amqp.Connection
	Channel    *amqp.Channel
	Exchange   string
	RoutingKey string
}

func NewRabbitPublisher(amqpURL, exchange, queue, routingKey string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	if queue != "" {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, err
		}
		if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &RabbitPublisher{
		Conn:       conn,
		Channel:    ch,
		Exchange:   exchange,
		RoutingKey: routingKey,
	}, nil
}

func (r *RabbitPublisher) PublishTicketTransferred(ctx context.Context, msg TicketTransferred) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.Channel.PublishWithContext(ctx,
		r.Exchange,
		r.RoutingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    msg.EventID,
			Body:         body,
			Timestamp:    msg.TransferredAt,
			DeliveryMode: amqp.Persistent,
		},
	)
}

func (r *RabbitPublisher) Close() error {
	r.Channel.Close()
	return r.Conn.Close()
}
