// Package eventbus is the Core -> View transport of spec.md section 6,
// adapted from the teacher's generic pubsub (pkg/pubsub/generic.go) into a
// small set of typed topics instead of free-form string topics: log,
// standings-changed, start-light, start-released and race-finished.
package eventbus

import "sync"

// topic is a minimal generic multi-producer/multi-consumer broadcaster,
// the same shape as the teacher's PubSub[T] but scoped to one event kind
// per instance instead of a topic string map, since this bus has a fixed,
// known set of event kinds.
type topic[T any] struct {
	mu   sync.Mutex
	subs []chan T
}

func (t *topic[T]) subscribe() <-chan T {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan T, 16)
	t.subs = append(t.subs, ch)
	return ch
}

func (t *topic[T]) publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- v:
		default:
			// a slow/absent subscriber never blocks the publishing
			// worker; spec.md section 6 treats the view as a passive,
			// best-effort observer.
		}
	}
}

// LogEvent is one human-readable line (spec.md section 6 "log(message)").
type LogEvent struct {
	Message string
}

// Results is the race_finished(results) payload.
type Results[T any] struct {
	Entries []T
}

// Bus is the concrete event stream handed to every worker and consumed by
// any presentation layer.
type Bus[Result any] struct {
	log              topic[LogEvent]
	standingsChanged topic[struct{}]
	startLight       topic[int]
	startReleased    topic[struct{}]
	raceFinished     topic[Results[Result]]
}

// New builds an empty event bus.
func New[Result any]() *Bus[Result] {
	return &Bus[Result]{}
}

func (b *Bus[Result]) Log(message string)             { b.log.publish(LogEvent{Message: message}) }
func (b *Bus[Result]) SubscribeLog() <-chan LogEvent   { return b.log.subscribe() }

func (b *Bus[Result]) StandingsChanged()                  { b.standingsChanged.publish(struct{}{}) }
func (b *Bus[Result]) SubscribeStandingsChanged() <-chan struct{} {
	return b.standingsChanged.subscribe()
}

func (b *Bus[Result]) StartLight(n int)               { b.startLight.publish(n) }
func (b *Bus[Result]) SubscribeStartLight() <-chan int { return b.startLight.subscribe() }

func (b *Bus[Result]) StartReleased()                     { b.startReleased.publish(struct{}{}) }
func (b *Bus[Result]) SubscribeStartReleased() <-chan struct{} {
	return b.startReleased.subscribe()
}

func (b *Bus[Result]) RaceFinished(results []Result) {
	b.raceFinished.publish(Results[Result]{Entries: results})
}
func (b *Bus[Result]) SubscribeRaceFinished() <-chan Results[Result] {
	return b.raceFinished.subscribe()
}
