// Package service holds adapters from the booking engine to outside
// systems.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/cinepiu-booking/internal/booking"
	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/queue"
)

// publishTimeout bounds one publish, connection included.
const publishTimeout = 3 * time.Second

// EventPublisher sends booking events to RabbitMQ. It dials per publish,
// so a broker outage never outlives the call that hit it.
type EventPublisher struct {
	url string
	log *zap.Logger
	now func() time.Time
}

var _ booking.Publisher = (*EventPublisher)(nil)

func NewEventPublisher(url string, log *zap.Logger) *EventPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventPublisher{url: url, log: log, now: time.Now}
}

func (p *EventPublisher) ReservationsCreated(ctx context.Context, c booking.Confirmation) error {
	return p.publish(ctx, queue.TypeReservationsCreated, queue.NewReservationsCreated(c))
}

func (p *EventPublisher) ReservationStatusChanged(ctx context.Context, d model.ReservationDetail, by model.Principal) error {
	return p.publish(ctx, queue.TypeReservationStatusChanged, queue.NewReservationStatusChanged(d, by, p.now().UTC()))
}

func (p *EventPublisher) publish(ctx context.Context, typ string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(publishTimeout)})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	err = ch.PublishWithContext(ctx, "", queue.QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         typ,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.log.Debug("event published", zap.String("type", typ))
	return nil
}
