package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer reads booking events and appends them to the audit log.
type Consumer struct {
	url   string
	audit *zap.Logger // booking log
	log   *zap.Logger // application log
}

// NewConsumer returns a consumer for the broker at url. audit receives one
// entry per event.
func NewConsumer(url string, audit, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, audit: audit, log: log}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("booking consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("booking consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("booking consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for d := range msgs {
		if err := c.Handle(d.Type, d.Body); err != nil {
			c.log.Error("booking consumer: bad message", zap.String("type", d.Type), zap.Error(err))
			_ = d.Nack(false, false) // no requeue, avoids a poison loop
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle decodes one message and writes its audit entry.
func (c *Consumer) Handle(typ string, body []byte) error {
	switch typ {
	case TypeReservationsCreated:
		var ev ReservationsCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		c.audit.Info("reservations created",
			zap.String("event_id", ev.EventID),
			zap.Uint64s("reservation_ids", ev.ReservationIDs),
			zap.Uint64("showtime_id", ev.ShowtimeID),
			zap.String("movie", ev.MovieTitle),
			zap.String("room", ev.RoomName),
			zap.Time("starts_at", ev.StartsAt),
			zap.String("seats", strings.Join(ev.Seats, ",")),
			zap.Uint64("user_id", ev.UserID),
			zap.String("walk_in_name", ev.WalkInName),
			zap.Uint64("booked_by", ev.BookedBy),
			zap.String("booked_by_role", ev.BookedByRole),
			zap.Uint32("total_cents", ev.TotalCents),
			zap.Time("booked_at", ev.BookedAt))
	case TypeReservationStatusChanged:
		var ev ReservationStatusChangedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		c.audit.Info("reservation "+strings.ToLower(ev.Status),
			zap.String("event_id", ev.EventID),
			zap.Uint64("reservation_id", ev.ReservationID),
			zap.Uint64("showtime_id", ev.ShowtimeID),
			zap.String("movie", ev.MovieTitle),
			zap.String("seat", ev.Seat),
			zap.String("status", ev.Status),
			zap.Uint64("changed_by", ev.ChangedBy),
			zap.String("changed_by_role", ev.ChangedByRole),
			zap.Time("changed_at", ev.ChangedAt))
	default:
		return fmt.Errorf("unknown event type %q", typ)
	}
	return nil
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
