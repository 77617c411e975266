package journal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	queueSize    = 4096
	flushEvery   = time.Second
	defaultBatch = 100
)

// Recorder buffers trips and writes them in batches on its own goroutine so
// the simulation tick never waits on the database.
type Recorder struct {
	db        *gorm.DB
	log       zerolog.Logger
	batchSize int

	mu     sync.RWMutex
	closed bool
	queue  chan Trip
	done   chan struct{}

	written atomic.Int64
	dropped atomic.Int64
}

// NewRecorder migrates the schema and starts the writer.
func NewRecorder(db *gorm.DB, batchSize int, log zerolog.Logger) (*Recorder, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = defaultBatch
	}
	r := &Recorder{
		db:        db,
		log:       log.With().Str("component", "journal").Logger(),
		batchSize: batchSize,
		queue:     make(chan Trip, queueSize),
		done:      make(chan struct{}),
	}
	go r.run()
	return r, nil
}

// Record enqueues a trip. It never blocks; when the queue is full or the
// recorder is closed the trip is dropped and false is returned.
func (r *Recorder) Record(t Trip) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return false
	}
	select {
	case r.queue <- t:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Close flushes queued trips and stops the writer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
	if n := r.dropped.Load(); n > 0 {
		r.log.Warn().Int64("dropped", n).Msg("trips dropped")
	}
	return nil
}

// Written returns the number of trips persisted so far.
func (r *Recorder) Written() int64 { return r.written.Load() }

// Dropped returns the number of trips that were not queued.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

func (r *Recorder) run() {
	defer close(r.done)
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]Trip, 0, r.batchSize)
	for {
		select {
		case t, ok := <-r.queue:
			if !ok {
				r.flush(batch)
				return
			}
			batch = append(batch, t)
			if len(batch) >= r.batchSize {
				batch = r.flush(batch)
			}
		case <-ticker.C:
			batch = r.flush(batch)
		}
	}
}

func (r *Recorder) flush(batch []Trip) []Trip {
	if len(batch) == 0 {
		return batch
	}
	if err := r.db.CreateInBatches(&batch, r.batchSize).Error; err != nil {
		r.log.Error().Err(err).Int("trips", len(batch)).Msg("writing trips")
		return batch[:0]
	}
	r.written.Add(int64(len(batch)))
	r.log.Debug().Int("trips", len(batch)).Msg("trips written")
	return batch[:0]
}
