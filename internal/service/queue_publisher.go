package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/siaa/storage-rental/internal/queue"
	"github.com/siaa/storage-rental/internal/utils"
)

// AMQPPublisher publishes booking events to a durable RabbitMQ queue.  A
// connection is dialed per publish; event volume is one message per booking
// write.
type AMQPPublisher struct {
	URL   string
	Queue string
}

// NewAMQPPublisher returns a publisher for the given broker URL and queue.
// An empty queue name selects queue.BookingQueueName.
func NewAMQPPublisher(url, queueName string) *AMQPPublisher {
	if queueName == "" {
		queueName = queue.BookingQueueName
	}
	return &AMQPPublisher{URL: url, Queue: queueName}
}

// PublishBookingEvent sends ev as a persistent JSON message.  Errors are
// logged and returned so callers can ignore them.
func (p *AMQPPublisher) PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error {
	log := utils.Logger.WithFields(logrus.Fields{"queue": p.Queue, "type": ev.Type, "booking_id": ev.BookingID})

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}
