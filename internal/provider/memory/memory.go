// Package memory implements a Provider that keeps sent messages in memory.
// It is meant for tests and for previewing what would be sent.
package memory

import (
	"context"
	"sync"

	"github.com/shineum/mdmail/internal/email"
)

// Provider is an in-memory outbox. It is safe for concurrent use.
type Provider struct {
	mu     sync.Mutex
	outbox []*email.Message
	err    error
}

// New returns an empty outbox.
func New() *Provider {
	return &Provider{}
}

// Send records a copy of msg, or returns the error set with FailWith.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	clone := *msg
	clone.Inline = append([]email.Attachment(nil), msg.Inline...)
	clone.Attachments = append([]email.Attachment(nil), msg.Attachments...)
	p.outbox = append(p.outbox, &clone)
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "memory"
}

// Messages returns the messages sent so far, oldest first.
func (p *Provider) Messages() []*email.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*email.Message(nil), p.outbox...)
}

// FailWith makes subsequent sends return err. A nil err restores delivery.
func (p *Provider) FailWith(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Reset empties the outbox.
func (p *Provider) Reset() {
	p.mu.Lock()
	p.outbox = nil
	p.mu.Unlock()
}
