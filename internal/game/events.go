package game

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a round event with type safety.
type EventType string

const (
	EventTypePhaseChange    EventType = "phase_change"
	EventTypeWinnersDrawn   EventType = "winners_drawn"
	EventTypeCaptureRequest EventType = "capture_request"
	EventTypeRoundReset     EventType = "round_reset"
	EventTypeGestureConfirm EventType = "gesture_confirm"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}

// Event is anything published on the round event bus.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
}

// PhaseChangeEvent is published on every phase transition.
type PhaseChangeEvent struct {
	RoundID   uuid.UUID
	From      Phase
	To        Phase
	timestamp time.Time
}

func (e PhaseChangeEvent) EventType() EventType { return EventTypePhaseChange }
func (e PhaseChangeEvent) Timestamp() time.Time { return e.timestamp }

// WinnersDrawnEvent is published once per round, when the winner set is
// frozen.
type WinnersDrawnEvent struct {
	RoundID   uuid.UUID
	TrackIDs  []int64
	PoolSize  int
	timestamp time.Time
}

func (e WinnersDrawnEvent) EventType() EventType { return EventTypeWinnersDrawn }
func (e WinnersDrawnEvent) Timestamp() time.Time { return e.timestamp }

// CaptureRequestEvent asks the capture collaborator to capture a specific
// tracked hand.
type CaptureRequestEvent struct {
	RoundID   uuid.UUID
	TrackID   int64
	timestamp time.Time
}

func (e CaptureRequestEvent) EventType() EventType { return EventTypeCaptureRequest }
func (e CaptureRequestEvent) Timestamp() time.Time { return e.timestamp }

// RoundResetEvent is published when a round is torn down, whether by the
// confirm gesture or an explicit reset.
type RoundResetEvent struct {
	RoundID   uuid.UUID
	timestamp time.Time
}

func (e RoundResetEvent) EventType() EventType { return EventTypeRoundReset }
func (e RoundResetEvent) Timestamp() time.Time { return e.timestamp }

// GestureConfirmEvent is published when a completed flip sequence is
// accepted by the game, either starting a round from idle or restarting
// one from the reveal.
type GestureConfirmEvent struct {
	RoundID   uuid.UUID
	Phase     Phase
	timestamp time.Time
}

func (e GestureConfirmEvent) EventType() EventType { return EventTypeGestureConfirm }
func (e GestureConfirmEvent) Timestamp() time.Time { return e.timestamp }

// Subscriber receives round events.
type Subscriber interface {
	HandleEvent(event Event)
}

// Bus manages event publishing and subscription.
type Bus interface {
	Subscribe(subscriber Subscriber)
	Unsubscribe(subscriber Subscriber)
	Publish(event Event)
}

// SimpleBus is a basic in-memory synchronous bus. Events are delivered on
// the publishing goroutine, which under the single-writer tick discipline
// means subscribers run inside the tick.
type SimpleBus struct {
	subscribers []Subscriber
}

// NewBus creates an empty bus.
func NewBus() *SimpleBus {
	return &SimpleBus{subscribers: make([]Subscriber, 0)}
}

// Subscribe adds a subscriber to receive events.
func (b *SimpleBus) Subscribe(subscriber Subscriber) {
	b.subscribers = append(b.subscribers, subscriber)
}

// Unsubscribe removes a subscriber.
func (b *SimpleBus) Unsubscribe(subscriber Subscriber) {
	for i, s := range b.subscribers {
		if s == subscriber {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers.
func (b *SimpleBus) Publish(event Event) {
	for _, s := range b.subscribers {
		s.HandleEvent(event)
	}
}
