package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type smtpClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender opens a fresh connection for every message.
type SMTPSender struct {
	config config.MailConfig
	client smtpClient
	logger *logging.Service
}

func NewSMTPSender(cfg config.MailConfig, logger *logging.Service) (*SMTPSender, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}

	switch cfg.Encryption {
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return newSMTPSenderWithClient(cfg, client, logger), nil
}

func newSMTPSenderWithClient(cfg config.MailConfig, client smtpClient, logger *logging.Service) *SMTPSender {
	logger.Info("smtp mail sender ready",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("encryption", cfg.Encryption))

	return &SMTPSender{
		config: cfg,
		client: client,
		logger: logger.Named("mail"),
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m, err := s.build(msg)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		s.logger.Error("failed to send email",
			zap.Error(err),
			zap.Strings("recipients", msg.To),
			zap.Duration("attempt_duration", time.Since(start)))
		return transportError(err)
	}

	s.logger.Info("email sent",
		zap.Strings("recipients", msg.To),
		zap.String("subject", msg.Subject),
		zap.Duration("send_duration", time.Since(start)))
	return nil
}

func (s *SMTPSender) build(msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if err := m.From(fromHeader(s.config.FromName, s.config.FromAddress)); err != nil {
		return nil, fmt.Errorf("%w: from address: %v", ErrInvalidMessage, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("%w: recipients: %v", ErrInvalidMessage, err)
	}
	m.Subject(msg.Subject)

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
		m.AddAlternativeString(mail.TypeTextPlain, msg.TextBody)
	case msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}

	return m, nil
}
