package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// * ErrUnprocessable: сообщение нельзя обработать ни при какой повторной доставке
var ErrUnprocessable = errors.New("unprocessable message")

// * Handler обрабатывает тело сообщения. nil означает ack, ErrUnprocessable означает reject, иначе requeue.
type Handler func(ctx context.Context, body []byte) error

type RabbitMQClient struct {
	log     *slog.Logger
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func New(log *slog.Logger, urlForConn, queueName string, prefetch int) (*RabbitMQClient, error) {
	const op = "rabbitmq.New"

	conn, err := amqp.Dial(urlForConn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(
		queueName, true, false, false, false, nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("%s: set qos: %w", op, err)
		}
	}

	return &RabbitMQClient{
		log:     log,
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

// * SendMessage публикует письмо как persistent сообщение в durable очередь
func (r *RabbitMQClient) SendMessage(ctx context.Context, msg models.EmailMessage) error {
	const op = "rabbitmq.SendMessage"

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		"",
		r.queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * StartReading читает очередь с ручным подтверждением до отмены ctx
func (r *RabbitMQClient) StartReading(ctx context.Context, handler Handler) error {
	const op = "rabbitmq.StartReading"

	msgs, err := r.channel.ConsumeWithContext(ctx, r.queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	consume(ctx, r.log, msgs, handler)

	return nil
}

func consume(ctx context.Context, log *slog.Logger, msgs <-chan amqp.Delivery, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}

			handleDelivery(ctx, log, d, handler)
		}
	}
}

func handleDelivery(ctx context.Context, log *slog.Logger, d amqp.Delivery, handler Handler) {
	const op = "rabbitmq.handleDelivery"

	log = log.With(
		slog.String("op", op),
		slog.String("message_id", d.MessageId),
		slog.Bool("redelivered", d.Redelivered),
	)

	err := handler(ctx, d.Body)
	switch {
	case err == nil:
		if err := d.Ack(false); err != nil {
			log.Error("failed to ack", sl.Err(err))
		}
	case errors.Is(err, ErrUnprocessable):
		log.Warn("dropping message", sl.Err(err))

		if err := d.Nack(false, false); err != nil {
			log.Error("failed to reject", sl.Err(err))
		}
	default:
		log.Error("failed to handle message, requeue", sl.Err(err))

		if err := d.Nack(false, true); err != nil {
			log.Error("failed to nack", sl.Err(err))
		}
	}
}

func (r *RabbitMQClient) Close() {
	_ = r.channel.Close()
	_ = r.conn.Close()
}
