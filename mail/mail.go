// Package mail renders and sends transactional email.
package mail

import (
	"context"
	"errors"
)

var ErrNoRecipient = errors.New("mail: no recipient")

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg *Message) error
}
