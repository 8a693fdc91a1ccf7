package records

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fruitsalade/docportal/internal/events"
	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/pkg/models"
)

// Source fetches the raw record collections.
type Source interface {
	FetchEmployees(ctx context.Context) ([]models.Employee, error)
	FetchDocuments(ctx context.Context) ([]models.Document, error)
}

// ErrNotFound is returned by a Deleter for unknown or already deleted
// documents.
var ErrNotFound = errors.New("document not found")

// Deleter removes a document. Callers revalidate afterwards.
type Deleter interface {
	DeleteDocument(ctx context.Context, id string) error
}

// Loader keeps the current Index and replaces it wholesale on every
// revalidation. Readers always see a complete snapshot.
type Loader struct {
	src Source

	mu       sync.RWMutex
	index    *Index
	loadedAt time.Time
}

// NewLoader creates a loader with an empty index.
func NewLoader(src Source) *Loader {
	return &Loader{
		src:   src,
		index: NewIndex(nil, nil),
	}
}

// Index returns the current snapshot.
func (l *Loader) Index() *Index {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index
}

// LoadedAt returns when the current snapshot was fetched; zero if never.
func (l *Loader) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// Revalidate fetches both collections concurrently and swaps the snapshot.
// On error the previous snapshot stays in place.
func (l *Loader) Revalidate(ctx context.Context) (*Index, error) {
	start := time.Now()

	var employees []models.Employee
	var documents []models.Document

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := l.src.FetchEmployees(gctx)
		if err != nil {
			return fmt.Errorf("fetch employees: %w", err)
		}
		employees = list
		return nil
	})
	g.Go(func() error {
		list, err := l.src.FetchDocuments(gctx)
		if err != nil {
			return fmt.Errorf("fetch documents: %w", err)
		}
		documents = list
		return nil
	})
	if err := g.Wait(); err != nil {
		metrics.RecordSnapshotRefreshError()
		return nil, err
	}

	ix := NewIndex(employees, documents)

	l.mu.Lock()
	l.index = ix
	l.loadedAt = time.Now()
	l.mu.Unlock()

	metrics.RecordSnapshotRefresh(time.Since(start), len(employees), len(documents))
	logging.Debug("record snapshot refreshed",
		zap.Int("employees", len(employees)),
		zap.Int("documents", len(documents)),
		zap.Duration("duration", time.Since(start)))
	return ix, nil
}

// Watch revalidates after every event received on ch until ctx is done or
// ch is closed. Bursts already queued on ch collapse into one refresh.
func (l *Loader) Watch(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			drained := drain(ch)
			if _, err := l.Revalidate(ctx); err != nil {
				logging.Warn("revalidation failed",
					zap.String("trigger", ev.Type),
					zap.Int("coalesced", drained),
					zap.Error(err))
			}
		}
	}
}

func drain(ch <-chan events.Event) int {
	n := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}
