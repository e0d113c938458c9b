package genetic

import (
	"context"
	"sync"
	"time"
)

// Progress describes a completed generation.
type Progress struct {
	// Generation counts from 0, the initial population.
	Generation int
	// PopulationSize is the number of candidates in the generation.
	PopulationSize int
	BestFitness    float64
	MeanFitness    float64
	StdDevFitness  float64
	// Evaluations is the running total of fitness calls in this run.
	Evaluations int64
	// Elapsed is the time since the run started.
	Elapsed time.Duration
}

// broadcaster fans progress events out to subscribers in generation order.
// Sends block until the subscriber receives, unsubscribes, or the run's
// context ends; events are never dropped for an active subscriber.
type broadcaster struct {
	mu        sync.Mutex
	nextID    int
	subs      map[int]*subscription
	callbacks []func(Progress)
}

type subscription struct {
	ch   chan Progress
	done chan struct{}
	once sync.Once
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]*subscription)}
}

func (b *broadcaster) subscribe(buffer int) (<-chan Progress, func()) {
	if buffer < 0 {
		buffer = 0
	}
	s := &subscription{
		ch:   make(chan Progress, buffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	cancel := func() {
		// done is closed before taking the lock so a publish blocked on
		// this subscriber lets go of it.
		s.once.Do(func() { close(s.done) })

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return s.ch, cancel
}

func (b *broadcaster) onProgress(fn func(Progress)) {
	b.mu.Lock()
	b.callbacks = append(b.callbacks, fn)
	b.mu.Unlock()
}

func (b *broadcaster) publish(ctx context.Context, p Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, fn := range b.callbacks {
		fn(p)
	}
	for _, s := range b.subs {
		select {
		case s.ch <- p:
		case <-s.done:
		case <-ctx.Done():
		}
	}
}

// closeAll ends every subscription. Called when a run finishes.
func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, s := range b.subs {
		s.once.Do(func() { close(s.done) })
		close(s.ch)
		delete(b.subs, id)
	}
}
