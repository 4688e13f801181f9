package email

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/models"
)

var ErrOutboxFull = errors.New("email outbox is full")

type Publisher interface {
	SendMessage(ctx context.Context, msg models.EmailMessage) error
}

type DropRecorder interface {
	RecordOutboxDropped()
}

// * Outbox отвязывает запрос от брокера: SendMessage кладет письмо в буфер,
// одна горутина Run публикует его в очередь.
type Outbox struct {
	log            *slog.Logger
	publisher      Publisher
	queue          chan models.EmailMessage
	publishTimeout time.Duration
	metrics        DropRecorder
}

func NewOutbox(
	log *slog.Logger,
	publisher Publisher,
	size int,
	publishTimeout time.Duration,
	metrics DropRecorder,
) *Outbox {
	return &Outbox{
		log:            log,
		publisher:      publisher,
		queue:          make(chan models.EmailMessage, size),
		publishTimeout: publishTimeout,
		metrics:        metrics,
	}
}

// * SendMessage не блокируется, при заполненном буфере возвращает ErrOutboxFull
func (o *Outbox) SendMessage(_ context.Context, msg models.EmailMessage) error {
	select {
	case o.queue <- msg:
		return nil
	default:
		o.metrics.RecordOutboxDropped()
		return ErrOutboxFull
	}
}

// * Run публикует письма до отмены ctx, затем досылает то, что осталось в буфере
func (o *Outbox) Run(ctx context.Context) {
	const op = "email.Outbox.Run"

	log := o.log.With(slog.String("op", op))

	for {
		select {
		case msg := <-o.queue:
			o.publish(context.Background(), log, msg)
		case <-ctx.Done():
			for {
				select {
				case msg := <-o.queue:
					o.publish(context.Background(), log, msg)
				default:
					log.Info("outbox drained")
					return
				}
			}
		}
	}
}

func (o *Outbox) publish(ctx context.Context, log *slog.Logger, msg models.EmailMessage) {
	ctx, cancel := context.WithTimeout(ctx, o.publishTimeout)
	defer cancel()

	if err := o.publisher.SendMessage(ctx, msg); err != nil {
		log.Error("failed to publish email", slog.String("subject", msg.Subject), sl.Err(err))
		return
	}

	log.Debug("email published", slog.String("subject", msg.Subject))
}
