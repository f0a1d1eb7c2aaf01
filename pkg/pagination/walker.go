package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for continuation walks.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wiki_pagination_pages_total",
		Help: "Total pages fetched while following continuation, by list",
	}, []string{"list"})

	itemsPerPage = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wiki_pagination_items_per_page",
		Help:    "Number of items returned per upstream page, by list",
		Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
	}, []string{"list"})
)

var (
	// ErrInvalidLimit is returned when the walker is configured with a limit below 1.
	ErrInvalidLimit = errors.New("limit must be a positive integer")

	// ErrStalled is returned when upstream hands back the continuation it was just given.
	ErrStalled = errors.New("continuation did not advance")
)

// Continuation holds the parameters upstream asked us to send with the next request.
// A nil Continuation means "first page".
type Continuation map[string]string

// Page is one upstream response: its items, in upstream order, and the
// continuation for the next request. Next is nil when upstream reports no more results.
type Page[T any] struct {
	Items []T
	Next  Continuation
}

// PageFetcher fetches a single page starting at the given continuation.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, cont Continuation) (Page[T], error)
}

// FetcherFunc adapts a plain function to PageFetcher.
type FetcherFunc[T any] func(ctx context.Context, cont Continuation) (Page[T], error)

// FetchPage calls f.
func (f FetcherFunc[T]) FetchPage(ctx context.Context, cont Continuation) (Page[T], error) {
	return f(ctx, cont)
}

// Config holds walker configuration.
type Config struct {
	// Limit stops the walk once at least Limit items have been produced.
	// The page that crosses the limit is kept whole.
	Limit int

	// Name labels logs and metrics (e.g. "backlinks").
	Name string
}

// Walker drives a request/continue loop against a paginated list.
type Walker[T any] struct {
	fetcher PageFetcher[T]
	config  Config
}

// NewWalker creates a walker. An empty Name is reported as "list".
func NewWalker[T any](fetcher PageFetcher[T], config Config) *Walker[T] {
	if config.Name == "" {
		config.Name = "list"
	}
	return &Walker[T]{
		fetcher: fetcher,
		config:  config,
	}
}

// Pages returns a lazy sequence of item batches, one per upstream page.
// Each range over the sequence starts again from the first page.
//
// After every page the stop conditions are checked in order:
//  1. at least Limit items produced: stop
//  2. no continuation: stop
//  3. otherwise request the next page with the returned continuation
//
// A fetch error is yielded once and ends the sequence.
func (w *Walker[T]) Pages(ctx context.Context) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		if w.config.Limit < 1 {
			yield(nil, fmt.Errorf("%w (got %d)", ErrInvalidLimit, w.config.Limit))
			return
		}

		start := time.Now()
		logger := log.With().Str("list", w.config.Name).Int("limit", w.config.Limit).Logger()

		var cont Continuation
		total := 0

		for pageNum := 1; ; pageNum++ {
			page, err := w.fetcher.FetchPage(ctx, cont)
			if err != nil {
				logger.Warn().
					Err(err).
					Int("page", pageNum).
					Int("accumulated", total).
					Msg("Page fetch failed")
				yield(nil, err)
				return
			}

			total += len(page.Items)
			pagesFetchedTotal.WithLabelValues(w.config.Name).Inc()
			itemsPerPage.WithLabelValues(w.config.Name).Observe(float64(len(page.Items)))

			logger.Debug().
				Int("page", pageNum).
				Int("items", len(page.Items)).
				Int("accumulated", total).
				Bool("has_more", page.Next != nil).
				Msg("Fetched page")

			if !yield(page.Items, nil) {
				return
			}

			if total >= w.config.Limit {
				logger.Debug().
					Int("pages", pageNum).
					Int("items", total).
					Dur("duration", time.Since(start)).
					Msg("Walk complete (limit reached)")
				return
			}

			if page.Next == nil {
				logger.Debug().
					Int("pages", pageNum).
					Int("items", total).
					Dur("duration", time.Since(start)).
					Msg("Walk complete (no continuation)")
				return
			}

			if cont != nil && maps.Equal(cont, page.Next) {
				yield(nil, fmt.Errorf("%w after page %d", ErrStalled, pageNum))
				return
			}
			cont = page.Next
		}
	}
}

// Collect walks every page and returns all items in upstream order.
// On error nothing is returned but the error.
func (w *Walker[T]) Collect(ctx context.Context) ([]T, error) {
	items := make([]T, 0)
	for batch, err := range w.Pages(ctx) {
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}
	return items, nil
}
