package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers through Amazon SES using the default AWS credential
// chain.
type SESSender struct {
	client sesAPI
	source string
	logger *logging.Service
}

func NewSESSender(ctx context.Context, cfg config.MailConfig, logger *logging.Service) (*SESSender, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SESRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("ses mail sender ready", zap.String("region", cfg.SESRegion))
	return newSESSenderWithClient(cfg, ses.NewFromConfig(awsCfg), logger), nil
}

func newSESSenderWithClient(cfg config.MailConfig, client sesAPI, logger *logging.Service) *SESSender {
	return &SESSender{
		client: client,
		source: fromHeader(cfg.FromName, cfg.FromAddress),
		logger: logger.Named("mail"),
	}
}

func (s *SESSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	body := &types.Body{}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")}
	}
	if msg.TextBody != "" {
		body.Text = &types.Content{Data: aws.String(msg.TextBody), Charset: aws.String("UTF-8")}
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(s.source),
		Destination: &types.Destination{ToAddresses: msg.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	})
	if err != nil {
		s.logger.Error("failed to send email via SES", zap.Error(err), zap.Strings("recipients", msg.To))
		return transportError(err)
	}

	s.logger.Info("email sent",
		zap.Strings("recipients", msg.To),
		zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
