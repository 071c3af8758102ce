package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	key string
	msg amqp.Publishing
}

type fakeChannel struct {
	out []published
	err error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{key: key, msg: msg})
	return nil
}

func TestAMQPSender_Publishes(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ch := &fakeChannel{}
	s := newAMQPSender(ch, func() time.Time { return fixed })

	require.NoError(t, s.SendEmail(context.Background(), "a@b.c", "Your code", "123456"))
	require.NoError(t, s.SendSMS(context.Background(), "+48", "500600700", "123456"))
	require.Len(t, ch.out, 2)

	assert.Equal(t, EmailQueue, ch.out[0].key)
	assert.Equal(t, amqp.Persistent, ch.out[0].msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.out[0].msg.ContentType)
	var email EmailMessage
	require.NoError(t, json.Unmarshal(ch.out[0].msg.Body, &email))
	assert.Equal(t, "a@b.c", email.To)
	assert.True(t, email.SentAt.Equal(fixed))

	assert.Equal(t, SMSQueue, ch.out[1].key)
	var sms SMSMessage
	require.NoError(t, json.Unmarshal(ch.out[1].msg.Body, &sms))
	assert.Equal(t, "500600700", sms.Number)
}

func TestAMQPSender_PublishFailure(t *testing.T) {
	s := newAMQPSender(&fakeChannel{err: errors.New("channel closed")}, time.Now)
	err := s.SendEmail(context.Background(), "a@b.c", "s", "b")
	assert.ErrorContains(t, err, "channel closed")
}

func TestLogSender(t *testing.T) {
	s := LogSender{Log: zap.NewNop()}
	assert.NoError(t, s.SendEmail(context.Background(), "a@b.c", "s", "b"))
	assert.NoError(t, s.SendSMS(context.Background(), "+48", "1", "b"))
}
