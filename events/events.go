// Package events moves outgoing mail through RabbitMQ so API requests don't
// wait on the mail provider.
package events

import (
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"eduplatform-backend/log"
)

const MailQueueName = "mail"

type Events struct {
	Conn *amqp.Connection
}

// Connect dials with exponential backoff and declares the durable mail queue.
func Connect(connString string) (*Events, error) {
	log.Logger.Info("Trying to connect to rabbitmq...")

	var conn *amqp.Connection
	t := time.Second
	for i := 0; i < 6; i++ {
		var err error
		conn, err = amqp.Dial(connString)
		if err != nil {
			if i == 5 {
				return nil, err
			}
			log.Logger.Warn("rabbitmq not reachable, retrying", zap.Duration("in", t), zap.Error(err))
			time.Sleep(t)
			t *= 2

			continue
		}

		break
	}
	log.Logger.Info("Connected to rabbitmq")

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		MailQueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Events{Conn: conn}, nil
}

func (e *Events) Close() error {
	return e.Conn.Close()
}
