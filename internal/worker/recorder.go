package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	pantry "github.com/telliott/pantry/internal"
)

const (
	recordChanSize   = 1000
	recordBatchSize  = 100
	recordFlushEvery = 5 * time.Second
	recordDrainTime  = 30 * time.Second
)

// SearchStore is the persistence interface consumed by SearchRecorder.
type SearchStore interface {
	InsertSearches(ctx context.Context, records []pantry.SearchRecord) error
}

// SearchRecorder buffers search timing records and batch-flushes them to the
// store. Records are dropped if the channel is full (back-pressure on slow DB).
type SearchRecorder struct {
	ch    chan pantry.SearchRecord
	store SearchStore
}

// NewSearchRecorder creates a SearchRecorder backed by store.
func NewSearchRecorder(store SearchStore) *SearchRecorder {
	return &SearchRecorder{
		ch:    make(chan pantry.SearchRecord, recordChanSize),
		store: store,
	}
}

// Record enqueues a search record. It never blocks; drops on full channel.
func (s *SearchRecorder) Record(r pantry.SearchRecord) {
	select {
	case s.ch <- r:
	default:
		slog.Warn("search record dropped, channel full")
	}
}

// QueueLength reports the number of queued records.
func (s *SearchRecorder) QueueLength() int { return len(s.ch) }

// Run processes records until ctx is cancelled, then drains remaining records.
func (s *SearchRecorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(recordFlushEvery)
	defer ticker.Stop()

	buf := make([]pantry.SearchRecord, 0, recordBatchSize)

	for {
		select {
		case r := <-s.ch:
			buf = append(buf, r)
			if len(buf) >= recordBatchSize {
				s.flush(ctx, buf)
				buf = buf[:0]
			}

		case <-ticker.C:
			if len(buf) > 0 {
				s.flush(ctx, buf)
				buf = buf[:0]
			}

		case <-ctx.Done():
			// Drain remaining records with a timeout.
			s.drain(buf)
			return nil
		}
	}
}

func (s *SearchRecorder) drain(buf []pantry.SearchRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), recordDrainTime)
	defer cancel()

	for {
		select {
		case r := <-s.ch:
			buf = append(buf, r)
			if len(buf) >= recordBatchSize {
				s.flush(ctx, buf)
				buf = buf[:0]
			}
		default:
			// Channel empty, flush remaining.
			if len(buf) > 0 {
				s.flush(ctx, buf)
			}
			return
		}
	}
}

func (s *SearchRecorder) flush(ctx context.Context, buf []pantry.SearchRecord) {
	// Copy to avoid aliasing the caller's slice.
	batch := make([]pantry.SearchRecord, len(buf))
	copy(batch, buf)

	// Assign IDs off the hot path; callers leave ID empty.
	for i := range batch {
		if batch[i].ID == "" {
			batch[i].ID = uuid.Must(uuid.NewV7()).String()
		}
	}

	if err := s.store.InsertSearches(ctx, batch); err != nil {
		slog.LogAttrs(ctx, slog.LevelError, "search record flush failed",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()),
		)
	}
}
