package testutil

import (
	"context"
	"strings"
	"sync"

	"geosm/internal/geo"
)

// PlainHasher stores passwords with a fixed prefix.
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (PlainHasher) Verify(password, digest string) bool { return digest == "hashed:"+password }

// StaticCaptcha accepts only the token "ok" when Enforced is set.
type StaticCaptcha struct {
	Enforced bool
}

func (c StaticCaptcha) Verify(_ context.Context, token string) (bool, error) {
	if !c.Enforced {
		return true, nil
	}
	return token == "ok", nil
}

// SentMessage is one notification recorded by RecordingSender.
type SentMessage struct {
	Channel string
	To      string
	Body    string
}

// RecordingSender keeps every notification in memory.
type RecordingSender struct {
	mu   sync.Mutex
	Sent []SentMessage
	Err  error
}

func (s *RecordingSender) SendEmail(_ context.Context, to, _, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, SentMessage{Channel: "email", To: to, Body: body})
	return nil
}

func (s *RecordingSender) SendSMS(_ context.Context, country, number, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, SentMessage{Channel: "sms", To: country + number, Body: body})
	return nil
}

// Last returns the most recent notification.
func (s *RecordingSender) Last() (SentMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Sent) == 0 {
		return SentMessage{}, false
	}
	return s.Sent[len(s.Sent)-1], true
}

// StaticGeo returns fixed places whose description contains the query.
type StaticGeo struct {
	Places []geo.Place
}

func (g StaticGeo) Search(_ context.Context, text string) ([]geo.Place, error) {
	var out []geo.Place
	for _, p := range g.Places {
		if strings.Contains(strings.ToLower(p.Description), strings.ToLower(text)) {
			out = append(out, p)
		}
	}
	return out, nil
}
