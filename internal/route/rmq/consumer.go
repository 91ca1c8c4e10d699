package rmq

import (
	"encoding/json"
	"fmt"

	"food-dispatch/internal/common/logger"
	"food-dispatch/internal/common/rmq"
)

// ConsumeOrderEvents binds queueName to the order topic exchange and feeds
// every status change to handler. Events published by this service come back
// too; handlers are expected to be idempotent about them.
func (c *Client) ConsumeOrderEvents(queueName string, handler func(msg rmq.OrderStatusMessage)) error {
	ch := c.Channel

	if err := ch.ExchangeDeclare(
		OrderExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(
		q.Name,
		orderEventsBinding,
		OrderExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		for d := range deliveries {
			var msg rmq.OrderStatusMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				logger.Warn("consume_order_events", "failed to unmarshal order event", "", "", err.Error())
				continue
			}
			handler(msg)
		}
	}()

	return nil
}
