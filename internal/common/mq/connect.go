package mq

import (
	"fmt"
	"time"

	"food-dispatch/internal/common/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Chan *amqp.Channel
	URL  string
}

// NewRabbitMQ dials the broker with backoff; dispatch cannot run without its
// event stream, so startup blocks until the connection is up or retries are
// exhausted.
func NewRabbitMQ(host string, port int, user, password string) (*RabbitMQ, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", user, password, host, port)
	rmq := &RabbitMQ{URL: url}

	if err := rmq.connect(); err != nil {
		return nil, err
	}
	return rmq, nil
}

func (r *RabbitMQ) connect() error {
	var conn *amqp.Connection
	var err error

	for attempt := 1; attempt <= 5; attempt++ {
		conn, err = amqp.Dial(r.URL)
		if err == nil {
			r.Conn = conn
			r.Chan, err = conn.Channel()
			if err != nil {
				logger.Error("rabbitmq_channel_failed", "Failed to open RabbitMQ channel", "", "", err.Error())
				return fmt.Errorf("failed to open channel: %w", err)
			}
			logger.Info("rabbitmq_connected", "Connected to RabbitMQ successfully", "", "")
			return nil
		}
		logger.Warn("rabbitmq_retry",
			fmt.Sprintf("RabbitMQ connect attempt %d of 5 failed", attempt), "", "", err.Error())
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}

	logger.Error("rabbitmq_connection_failed", "Failed to connect to RabbitMQ after retries", "", "", err.Error())
	return fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
}

func (r *RabbitMQ) Close() {
	if r.Chan != nil {
		_ = r.Chan.Close()
	}
	if r.Conn != nil {
		_ = r.Conn.Close()
	}
	logger.Info("rabbitmq_connection_closed", "RabbitMQ connection closed", "", "")
}
