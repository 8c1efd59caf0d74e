package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"dinein-backend/internal/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	TableOpened       = "table.opened"
	TableCleaned      = "table.cleaned"
	OrderConfirmed    = "order.confirmed"
	ItemRushed        = "item.rushed"
	ItemRefunded      = "item.refunded"
	ItemStatusChanged = "item.status_changed"
	BillSettled       = "bill.settled"
)

// Event is published after the transaction that caused it has committed.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	TableID    uint      `json:"table_id,omitempty"`
	BillID     uint      `json:"bill_id,omitempty"`
	OrderID    uint      `json:"order_id,omitempty"`
	ItemID     uint      `json:"item_id,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

func New(typ string) Event {
	return Event{ID: uuid.NewString(), Type: typ, OccurredAt: time.Now().UTC()}
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NewPublisher picks the driver named in cfg.
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return Nop{}, nil
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "rabbitmq":
		return DialRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// Notify publishes ev and logs a failure instead of returning it. The store is
// the source of truth; a lost event never undoes a committed change.
func Notify(ctx context.Context, pub Publisher, log logrus.FieldLogger, ev Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"event_type": ev.Type,
			"event_id":   ev.ID,
		}).Warn("Event publish failed")
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the types of all recorded events in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
