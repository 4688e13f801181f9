package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/metrics"
	"todo_service/internal/models"
	"todo_service/internal/rabbitmq"

	"golang.org/x/time/rate"
)

type Sender interface {
	Send(to, subject, text, html string) error
}

type ResultRecorder interface {
	RecordEmail(result string)
}

// * Worker: обработчик сообщений очереди на стороне mail-sender
type Worker struct {
	log     *slog.Logger
	sender  Sender
	limiter *rate.Limiter
	metrics ResultRecorder
}

func NewWorker(log *slog.Logger, sender Sender, limiter *rate.Limiter, metrics ResultRecorder) *Worker {
	return &Worker{
		log:     log,
		sender:  sender,
		limiter: limiter,
		metrics: metrics,
	}
}

// * Handle подходит как rabbitmq.Handler
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	const op = "email.Worker.Handle"

	log := w.log.With(slog.String("op", op))

	var msg models.EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.metrics.RecordEmail(metrics.EmailDropped)
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrUnprocessable, err)
	}

	if strings.TrimSpace(msg.To) == "" {
		w.metrics.RecordEmail(metrics.EmailDropped)
		return fmt.Errorf("%s: %w: empty recipient", op, rabbitmq.ErrUnprocessable)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := w.sender.Send(msg.To, msg.Subject, msg.Text, msg.HTML); err != nil {
		w.metrics.RecordEmail(metrics.EmailFailed)
		log.Error("failed to send email", slog.String("subject", msg.Subject), sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	w.metrics.RecordEmail(metrics.EmailSent)
	log.Info("email sent", slog.String("subject", msg.Subject))

	return nil
}
