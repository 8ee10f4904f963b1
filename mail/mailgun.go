package mail

import (
	"context"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"

	"eduplatform-backend/log"
)

type Mailgun struct {
	mg   *mailgun.MailgunImpl
	from string
}

var _ Sender = (*Mailgun)(nil)

func NewMailgun(domain, apiKey, from string, eu bool) *Mailgun {
	mg := mailgun.NewMailgun(domain, apiKey)
	if eu {
		mg.SetAPIBase(mailgun.APIBaseEU)
	}
	return &Mailgun{mg: mg, from: from}
}

func (m *Mailgun) Send(ctx context.Context, msg *Message) error {
	message := m.mg.NewMessage(m.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}

	_, id, err := m.mg.Send(ctx, message)
	if err != nil {
		return err
	}
	log.Logger.Debug("mail sent", zap.String("to", msg.To), zap.String("id", id))
	return nil
}
