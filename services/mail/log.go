package mail

import (
	"context"

	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them. It is
// the default driver for local development.
type LogSender struct {
	logger *logging.Service
}

func NewLogSender(logger *logging.Service) *LogSender {
	return &LogSender{logger: logger.Named("mail")}
}

func (s *LogSender) Send(_ context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	s.logger.Info("email captured",
		zap.Strings("recipients", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text_body", msg.TextBody),
		zap.Int("html_length", len(msg.HTMLBody)))
	return nil
}
