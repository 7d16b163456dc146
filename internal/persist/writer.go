package persist

import (
	"context"
	"sync"

	"logos-backend/internal/common/logger"
	"logos-backend/internal/store"
)

// Queue is the hand-off between the store's write path and the Writer. Depth
// one, coalescing: when the Writer is busy a newer snapshot displaces the
// stale one still sitting in the queue, so only the newest state eventually
// hits the sink. Offer never blocks the write path.
type Queue struct {
	ch chan store.Snapshot
}

func newQueue() *Queue {
	return &Queue{ch: make(chan store.Snapshot, 1)}
}

// Offer queues a snapshot, dropping an undelivered older one if necessary.
func (q *Queue) Offer(snap store.Snapshot) {
	for {
		select {
		case q.ch <- snap:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}

// Writer is the single background consumer draining the queue into a Sink.
// Persistence is best-effort: a failed save is logged and the writer moves
// on, in-memory state is never affected.
type Writer struct {
	ctx    context.Context
	cancel context.CancelFunc
	queue  *Queue
	sink   Sink
	wg     sync.WaitGroup
}

func NewWriter(sink Sink) *Writer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Writer{
		ctx:    ctx,
		cancel: cancel,
		queue:  newQueue(),
		sink:   sink,
	}
}

// Queue returns the hand-off the store publishes snapshots to.
func (w *Writer) Queue() *Queue {
	return w.queue
}

func (w *Writer) Start() {
	logger.Info().Msg("Starting persistence writer")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				w.drain()
				return
			case snap := <-w.queue.ch:
				w.save(snap)
			}
		}
	}()
}

// Stop shuts the writer down, flushing a still-queued snapshot first.
func (w *Writer) Stop() {
	w.cancel()
	w.wg.Wait()
	logger.Info().Msg("Persistence writer stopped")
}

func (w *Writer) save(snap store.Snapshot) {
	if err := w.sink.Save(context.Background(), snap); err != nil {
		logger.Error().Err(err).Msg("Failed to persist snapshot")
		return
	}
	logger.Debug().Int("users", len(snap)).Msg("Snapshot persisted")
}

func (w *Writer) drain() {
	select {
	case snap := <-w.queue.ch:
		w.save(snap)
	default:
	}
}
