package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAcknowledger struct {
	records map[uint64]*ackRecord
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{records: make(map[uint64]*ackRecord)}
}

func (f *fakeAcknowledger) record(tag uint64) *ackRecord {
	if _, ok := f.records[tag]; !ok {
		f.records[tag] = &ackRecord{}
	}
	return f.records[tag]
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.record(tag).acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	rec := f.record(tag)
	rec.nacked = true
	rec.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleDelivery(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		acked   bool
		requeue bool
	}{
		{name: "success acks", err: nil, acked: true},
		{name: "failure requeues", err: errors.New("smtp down"), requeue: true},
		{name: "unprocessable is dropped", err: fmt.Errorf("bad json: %w", ErrUnprocessable)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := newFakeAcknowledger()
			d := amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("{}")}

			handleDelivery(context.Background(), discard(), d, func(context.Context, []byte) error {
				return tt.err
			})

			rec := ack.records[1]
			require.NotNil(t, rec)
			assert.Equal(t, tt.acked, rec.acked)
			assert.Equal(t, !tt.acked, rec.nacked)
			assert.Equal(t, tt.requeue, rec.requeue)
		})
	}
}

func TestConsume_StopsWhenChannelClosed(t *testing.T) {
	ack := newFakeAcknowledger()
	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("a")}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("b")}
	close(msgs)

	var bodies []string

	consume(context.Background(), discard(), msgs, func(_ context.Context, body []byte) error {
		bodies = append(bodies, string(body))
		return nil
	})

	assert.Equal(t, []string{"a", "b"}, bodies)
	assert.True(t, ack.records[2].acked)
}

func TestConsume_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan amqp.Delivery)

	done := make(chan struct{})
	go func() {
		defer close(done)
		consume(ctx, discard(), msgs, func(context.Context, []byte) error { return nil })
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consume did not stop after cancel")
	}
}
