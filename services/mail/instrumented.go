package mail

import (
	"context"

	"github.com/tech-arch1tect/ecostep/services/metrics"
)

// InstrumentedSender counts every delivery attempt that reaches the caller,
// after retries.
type InstrumentedSender struct {
	next    Sender
	metrics *metrics.Service
}

func NewInstrumentedSender(next Sender, m *metrics.Service) *InstrumentedSender {
	return &InstrumentedSender{next: next, metrics: m}
}

func (s *InstrumentedSender) Send(ctx context.Context, msg *Message) error {
	err := s.next.Send(ctx, msg)
	subject := ""
	if msg != nil {
		subject = msg.Subject
	}
	s.metrics.RecordMail(subject, err)
	return err
}
