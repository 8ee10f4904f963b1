package events

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"eduplatform-backend/log"
	"eduplatform-backend/mail"
)

// MailQueue is a mail.Sender that publishes to the mail queue.
type MailQueue struct {
	lock sync.Mutex
	ch   *amqp.Channel
}

var _ mail.Sender = (*MailQueue)(nil)

func NewMailQueue(e *Events) (*MailQueue, error) {
	ch, err := e.Conn.Channel()
	if err != nil {
		return nil, err
	}
	return &MailQueue{ch: ch}, nil
}

func encodeMessage(msg *mail.Message) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(msg); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decodeMessage(body []byte) (*mail.Message, error) {
	var msg *mail.Message
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&msg); err != nil {
		return nil, err
	}
	if msg == nil || msg.To == "" {
		return nil, mail.ErrNoRecipient
	}
	return msg, nil
}

func (q *MailQueue) Send(_ context.Context, msg *mail.Message) error {
	body, err := encodeMessage(msg)
	if err != nil {
		return err
	}

	q.lock.Lock()
	defer q.lock.Unlock()

	return q.ch.Publish(
		"",
		MailQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/x-gob",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (q *MailQueue) Close() error {
	return q.ch.Close()
}

// ConsumeMail delivers queued messages through sender until ctx is done.
// Undecodable messages are dropped; failed sends are requeued.
func ConsumeMail(ctx context.Context, e *Events, sender mail.Sender) error {
	rch, err := e.Conn.Channel()
	if err != nil {
		return err
	}
	defer func() {
		if err := rch.Close(); err != nil {
			log.Logger.Error("unable to close channel", zap.Error(err))
		}
	}()

	if err := rch.Qos(1, 0, false); err != nil {
		return err
	}

	msgs, err := rch.Consume(MailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("events: mail delivery channel closed")
			}
			handleDelivery(ctx, d, sender)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, d amqp.Delivery, sender mail.Sender) {
	process(ctx, d.Body, &d, sender)
}

func process(ctx context.Context, body []byte, ack acknowledger, sender mail.Sender) {
	msg, err := decodeMessage(body)
	if err != nil {
		log.Logger.Error("unable to decode mail", zap.Error(err))
		_ = ack.Nack(false, false)
		return
	}

	if err := sender.Send(ctx, msg); err != nil {
		log.Logger.Error("unable to send mail", zap.String("to", msg.To), zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		_ = ack.Nack(false, true)
		return
	}

	_ = ack.Ack(false)
}
