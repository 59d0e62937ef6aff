package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/utils"
)

// NotificationWriter stores the notifications derived from events.
type NotificationWriter interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
}

// Consumer reads booking events from RabbitMQ and writes a notification
// for the seeker and the provider of each booking.
type Consumer struct {
	URL    string
	Queue  string
	Writer NotificationWriter
}

// NewConsumer returns a consumer for the given broker URL and queue.  An
// empty queue name selects BookingQueueName.
func NewConsumer(url, queueName string, w NotificationWriter) *Consumer {
	if queueName == "" {
		queueName = BookingQueueName
	}
	return &Consumer{URL: url, Queue: queueName, Writer: w}
}

// Run connects to the broker, declares the durable queue and consumes
// until ctx is cancelled.  Connection failures are retried with
// exponential backoff capped at 30s; a message that cannot be handled is
// rejected without requeue so the consumer keeps going.
func (c *Consumer) Run(ctx context.Context) error {
	log := utils.Logger.WithField("queue", c.Queue)
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.WithError(err).Warnf("booking-consumer: dial failed, retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("booking-consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		utils.Logger.WithError(err).Warn("booking-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handleMessage(ctx, d.Body); err != nil {
			utils.Logger.WithError(err).WithField("message_id", d.MessageId).Warn("booking-consumer: handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	ns, err := Notifications(ev)
	if err != nil {
		return err
	}
	for i := range ns {
		if err := c.Writer.CreateNotification(ctx, &ns[i]); err != nil {
			return fmt.Errorf("store notification: %w", err)
		}
	}
	utils.Logger.WithFields(logrus.Fields{
		"type":       ev.Type,
		"booking_id": ev.BookingID,
		"status":     ev.Status,
	}).Debug("booking-consumer: notifications written")
	return nil
}

// Notifications derives the seeker and provider notifications of an
// event.  Parties with a zero id are skipped.
func Notifications(ev BookingEvent) ([]model.Notification, error) {
	if ev.BookingID == 0 {
		return nil, errors.New("event without booking id")
	}
	bookingID := ev.BookingID
	period := ev.StartDate + " to " + ev.EndDate

	var seeker, provider model.Notification
	switch ev.Type {
	case EventBookingCreated:
		seeker = model.Notification{
			Title:   "Booking request sent",
			Message: fmt.Sprintf("Your booking of %q for %s is pending confirmation.", ev.SpaceTitle, period),
		}
		provider = model.Notification{
			Title:   "New booking request",
			Message: fmt.Sprintf("%q has a new booking request for %s.", ev.SpaceTitle, period),
		}
	case EventBookingStatusChanged:
		msg := fmt.Sprintf("Booking #%d for %q is now %s.", ev.BookingID, ev.SpaceTitle, ev.Status)
		seeker = model.Notification{Title: "Booking " + ev.Status, Message: msg}
		provider = model.Notification{Title: "Booking " + ev.Status, Message: msg}
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}

	var out []model.Notification
	for _, p := range []struct {
		id uint64
		n  model.Notification
	}{{ev.SeekerID, seeker}, {ev.ProviderID, provider}} {
		if p.id == 0 {
			continue
		}
		n := p.n
		n.UserID = p.id
		n.Type = ev.Type
		n.BookingID = &bookingID
		out = append(out, n)
	}
	return out, nil
}
