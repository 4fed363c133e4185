package testutils

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/tech-arch1tect/ecostep/services/mail"
)

type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) Send(ctx context.Context, msg *mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// RecordingSender keeps every message it is asked to send. Err, when set,
// is returned instead of recording.
type RecordingSender struct {
	mu       sync.Mutex
	Err      error
	Messages []*mail.Message
}

func (r *RecordingSender) Send(_ context.Context, msg *mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Messages = append(r.Messages, msg)
	return nil
}

func (r *RecordingSender) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Messages)
}

func (r *RecordingSender) Last() *mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return nil
	}
	return r.Messages[len(r.Messages)-1]
}
