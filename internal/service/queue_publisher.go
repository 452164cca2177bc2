// Package queue_publisher provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
	q "github.com/DATAHOARDERS/UltimaScraperDB/internal/queue"
)

// NotificationPublisher publishes notification events for one tenant site.
// It satisfies the engine's bus port; a zero-value publisher is not usable,
// construct it with the site's database name.
type NotificationPublisher struct {
	Site string
}

// PublishNotification publishes a NotificationEvent to the
// "notification.created" queue. The function attempts to be robust and
// to never panic; any error is logged and returned so the caller can
// choose to ignore it. Messages are marked as persistent.
func (p *NotificationPublisher) PublishNotification(ctx context.Context, n *model.Notification) error {
	event := q.NotificationEvent{
		NotificationID: n.ID,
		Site:           p.Site,
		SubjectID:      n.UserID,
		ObserverID:     n.ObserverID,
		Category:       n.Category,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		"notification.created", // name
		true,                   // durable
		false,                  // autoDelete
		false,                  // exclusive
		false,                  // noWait
		nil,                    // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                     // default exchange
		"notification.created", // routing key = queue name
		false,                  // mandatory
		false,                  // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
