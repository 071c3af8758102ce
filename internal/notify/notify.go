// Package notify delivers one-time codes by email and SMS. Delivery is
// fire-and-forget: callers log failures and carry on.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"geosm/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Queue names consumed by the mail and SMS workers.
const (
	EmailQueue = "geosm.email"
	SMSQueue   = "geosm.sms"
)

// Sender is the outbound notification collaborator.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, country, number, body string) error
}

// EmailMessage is the JSON body published to EmailQueue.
type EmailMessage struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// SMSMessage is the JSON body published to SMSQueue.
type SMSMessage struct {
	Country string    `json:"country"`
	Number  string    `json:"number"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// publisher is the part of *amqp.Channel the sender uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSender publishes notifications to durable RabbitMQ queues.
type AMQPSender struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   publisher
	now  func() time.Time
}

// DialAMQP connects to url and declares both queues.
func DialAMQP(url string) (*AMQPSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}
	for _, queue := range []string{EmailQueue, SMSQueue} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("rabbitmq queue declare %s failed: %w", queue, err)
		}
	}
	return &AMQPSender{conn: conn, ch: ch, now: time.Now}, nil
}

func newAMQPSender(ch publisher, now func() time.Time) *AMQPSender {
	return &AMQPSender{ch: ch, now: now}
}

func (s *AMQPSender) publish(ctx context.Context, channel, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s notification: %w", channel, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    s.now().UTC(),
		Body:         body,
	}

	ctx, span := observability.StartClient(ctx, "rabbitmq", "publish."+channel)
	s.mu.Lock()
	err = s.ch.PublishWithContext(ctx, "", queue, false, false, msg)
	s.mu.Unlock()
	observability.EndClient(span, err)

	outcome := "published"
	if err != nil {
		outcome = "failed"
	}
	observability.NotificationsTotal.WithLabelValues(channel, outcome).Inc()
	if err != nil {
		return fmt.Errorf("publish %s notification: %w", channel, err)
	}
	return nil
}

func (s *AMQPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	return s.publish(ctx, "email", EmailQueue, EmailMessage{To: to, Subject: subject, Body: body, SentAt: s.now().UTC()})
}

func (s *AMQPSender) SendSMS(ctx context.Context, country, number, body string) error {
	return s.publish(ctx, "sms", SMSQueue, SMSMessage{Country: country, Number: number, Body: body, SentAt: s.now().UTC()})
}

// Close releases the broker connection.
func (s *AMQPSender) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// LogSender writes notifications to the log. It is used when no broker is
// configured.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) SendEmail(_ context.Context, to, subject, _ string) error {
	s.Log.Info("email notification", zap.String("to", to), zap.String("subject", subject))
	observability.NotificationsTotal.WithLabelValues("email", "logged").Inc()
	return nil
}

func (s LogSender) SendSMS(_ context.Context, country, number, _ string) error {
	s.Log.Info("sms notification", zap.String("country", country), zap.String("number", number))
	observability.NotificationsTotal.WithLabelValues("sms", "logged").Inc()
	return nil
}
