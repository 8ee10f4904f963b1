package mail

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"eduplatform-backend/log"
)

// Log writes messages to the logger instead of delivering them.
type Log struct{}

var _ Sender = Log{}

func (Log) Send(_ context.Context, msg *Message) error {
	log.Logger.Info("mail",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}

// Dummy records messages in memory. SetErr makes sends fail.
type Dummy struct {
	mu     sync.Mutex
	outbox []*Message
	err    error
}

var _ Sender = (*Dummy)(nil)

func (d *Dummy) Send(_ context.Context, msg *Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return d.err
	}
	m := *msg
	d.outbox = append(d.outbox, &m)
	return nil
}

func (d *Dummy) SetErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *Dummy) Outbox() []*Message {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*Message, len(d.outbox))
	copy(out, d.outbox)
	return out
}

// To returns the messages sent to addr, oldest first.
func (d *Dummy) To(addr string) []*Message {
	var out []*Message
	for _, m := range d.Outbox() {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

func (d *Dummy) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outbox = nil
	d.err = nil
}
