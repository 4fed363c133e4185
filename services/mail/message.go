package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport marks a delivery failure that may succeed on a later try.
	ErrTransport      = errors.New("mail transport failure")
	ErrInvalidMessage = errors.New("invalid mail message")
)

type Message struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if len(m.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrInvalidMessage)
	}
	for _, to := range m.To {
		if !strings.Contains(to, "@") {
			return fmt.Errorf("%w: bad recipient %q", ErrInvalidMessage, to)
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidMessage)
	}
	if m.TextBody == "" && m.HTMLBody == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return nil
}

// Sender delivers a composed message. Implementations wrap delivery
// failures with ErrTransport.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

func transportError(err error) error {
	if err == nil || errors.Is(err, ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

func fromHeader(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}
