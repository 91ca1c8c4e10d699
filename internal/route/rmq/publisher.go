package rmq

import (
	"context"
	"encoding/json"
	"fmt"

	"food-dispatch/internal/common/logger"
	"food-dispatch/internal/common/rmq"
	"food-dispatch/pkg/uuid"

	amqp "github.com/rabbitmq/amqp091-go"
)

func (c *Client) PublishOrderStatus(ctx context.Context, msg rmq.OrderStatusMessage) error {
	if msg.CorrelationID == "" {
		msg.CorrelationID = generateCorrelationID()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		logger.Error("publish_order_status", "failed to marshal order status message", msg.CorrelationID, msg.OrderID, err.Error())
		return fmt.Errorf("failed to marshal order status message: %w", err)
	}

	routingKey := fmt.Sprintf("%s.%s", orderRoutingBase, msg.NewStatus)

	if err := c.Channel.ExchangeDeclare(
		OrderExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		logger.Error("publish_order_status", "failed to declare exchange", msg.CorrelationID, msg.OrderID, err.Error())
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.Channel.PublishWithContext(
		ctx,
		OrderExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		logger.Error("publish_order_status", "failed to publish order status", msg.CorrelationID, msg.OrderID, err.Error())
		return fmt.Errorf("failed to publish order status: %w", err)
	}

	logger.Info("publish_order_status", "order status successfully published", msg.CorrelationID, msg.OrderID)
	return nil
}

func (c *Client) PublishRouteCompleted(ctx context.Context, msg rmq.RouteCompletedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		logger.Error("publish_route_completed", "failed to marshal route completed message", "", "", err.Error())
		return fmt.Errorf("failed to marshal route completed message: %w", err)
	}

	if err := c.Channel.ExchangeDeclare(
		OrderExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		logger.Error("publish_route_completed", "failed to declare exchange", "", "", err.Error())
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.Channel.PublishWithContext(
		ctx,
		OrderExchange,
		"route.completed",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		logger.Error("publish_route_completed", "failed to publish route completion", "", "", err.Error())
		return fmt.Errorf("failed to publish route completion: %w", err)
	}

	logger.Info("publish_route_completed", "route completion successfully published", "", "")
	return nil
}

func (c *Client) PublishLocationUpdate(ctx context.Context, msg rmq.LocationUpdateMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		logger.Error("publish_location_update", "failed to marshal location update message", "", "", err.Error())
		return fmt.Errorf("failed to marshal location update: %w", err)
	}

	if err := c.Channel.ExchangeDeclare(
		LocationExchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		logger.Error("publish_location_update", "failed to declare exchange", "", "", err.Error())
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.Channel.PublishWithContext(
		ctx,
		LocationExchange,
		"", // fanout ignores routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		logger.Error("publish_location_update", "failed to publish location update", "", "", err.Error())
		return fmt.Errorf("failed to publish location update: %w", err)
	}

	logger.Debug("publish_location_update", "location update successfully published", "", "")
	return nil
}

func generateCorrelationID() string {
	return uuid.Must()
}
