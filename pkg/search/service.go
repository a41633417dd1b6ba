// Package search runs saved searches: it translates them into marketplace
// queries, keeps only listings that were never stored before, persists
// those and announces them.
//
// Runs of the same search are serialized with a per-search lock held from
// the marketplace call until the notification. Across searches the unique
// item_id constraint of the store decides which search owns a listing.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielstefank/goodwill-alert/pkg/marketplace"
	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/danielstefank/goodwill-alert/pkg/notify"
	"github.com/danielstefank/goodwill-alert/pkg/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultConcurrency is the number of searches run in parallel by RunAll
	DefaultConcurrency = 2
	// DefaultCycleDeadline bounds a whole RunAll cycle
	DefaultCycleDeadline = 5 * time.Minute
)

// ErrNotAttempted marks searches that RunAll skipped because the cycle
// deadline passed before they were started
var ErrNotAttempted = errors.New("search not attempted")

// Options configures a Service
type Options struct {
	Concurrency int
	Deadline    time.Duration
	Logger      *zerolog.Logger
}

// Service is the entry point for managing and running saved searches
type Service struct {
	store      *storage.Storage
	executor   *Executor
	dispatcher *notify.Dispatcher
	locks      keyedMutex
	log        zerolog.Logger

	concurrency int
	deadline    time.Duration
}

// NewService wires a service from its collaborators
func NewService(store *storage.Storage, executor *Executor, dispatcher *notify.Dispatcher, opts Options) *Service {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultCycleDeadline
	}
	return &Service{
		store:       store,
		executor:    executor,
		dispatcher:  dispatcher,
		log:         loggerOrNop(opts.Logger),
		concurrency: concurrency,
		deadline:    deadline,
	}
}

// Authenticate establishes the marketplace session used by all runs
func (s *Service) Authenticate(ctx context.Context, creds marketplace.Credentials) error {
	return s.executor.Authenticate(ctx, creds)
}

// CreateSearch stores a new search
func (s *Service) CreateSearch(spec model.SearchSpec) (uint, error) {
	id, err := s.store.CreateSearch(spec)
	if err != nil {
		return 0, err
	}
	s.log.Info().Uint("search_id", id).Str("search", spec.Name).Msg("search created")
	return id, nil
}

// ListSearches returns the active searches, newest first
func (s *Service) ListSearches() ([]model.SavedSearch, error) {
	return s.store.ListSearches()
}

// DeleteSearch deactivates a search; its results are kept
func (s *Service) DeleteSearch(id uint) (bool, error) {
	deleted, err := s.store.DeleteSearch(id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info().Uint("search_id", id).Msg("search deleted")
	}
	return deleted, nil
}

// Results returns stored items newest first, optionally for one search
func (s *Service) Results(searchID *uint, limit int) ([]model.Item, error) {
	return s.store.Results(searchID, limit)
}

// RunSearch runs one search and returns the items that were new
func (s *Service) RunSearch(ctx context.Context, id uint) ([]model.Item, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	search, err := s.store.GetSearch(id)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, *search)
}

// run does execute, diff, persist and notify. The caller holds the lock.
func (s *Service) run(ctx context.Context, search model.SavedSearch) ([]model.Item, error) {
	log := s.log.With().Uint("search_id", search.ID).Str("search", search.Name).Logger()

	raw, err := s.executor.Execute(ctx, marketplace.Translate(search))
	if err != nil {
		return nil, fmt.Errorf("run search %q: %w", search.Name, err)
	}

	seen, err := s.store.SeenLookup(itemIDs(raw))
	if err != nil {
		return nil, fmt.Errorf("run search %q: %w: %w", search.Name, model.ErrPersistence, err)
	}

	fresh := Diff(raw, seen)
	persisted, err := s.store.PersistNew(search.ID, toItems(search, fresh))
	if err != nil {
		return nil, fmt.Errorf("run search %q: %w", search.Name, err)
	}

	log.Info().Int("fetched", len(raw)).Int("new", len(persisted)).Msg("search finished")

	if len(persisted) > 0 {
		s.dispatcher.NotifyRun(search.Name, persisted)
	}

	return persisted, nil
}

func toItems(search model.SavedSearch, raw []marketplace.RawItem) []model.Item {
	items := make([]model.Item, 0, len(raw))
	for _, r := range raw {
		url := r.URL
		if url == "" {
			url = marketplace.ItemURL(r.ID)
		}
		items = append(items, model.Item{
			SearchID:     search.ID,
			ItemID:       r.ID,
			Title:        r.Title,
			CurrentPrice: r.Price,
			EndTime:      r.EndTime,
			URL:          url,
			ImageURL:     r.ImageURL,
			SellerName:   r.SellerName,
			SearchName:   search.Name,
		})
	}
	return items
}

// SearchResult is the outcome of one search within a RunAll cycle
type SearchResult struct {
	SearchID uint
	Name     string
	NewItems []model.Item
	Err      error
}

// RunSummary is the outcome of a RunAll cycle
type RunSummary struct {
	CycleID  string
	Results  map[uint]*SearchResult
	Order    []uint // search ids in listing order
	TotalNew int
}

// Failed returns the results that ended in an error, in listing order
func (r *RunSummary) Failed() []*SearchResult {
	failed := make([]*SearchResult, 0)
	for _, id := range r.Order {
		if res := r.Results[id]; res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// RunAll runs every active search. A failing search is recorded in the
// summary and does not stop the others. Searches not started before the
// cycle deadline are recorded with ErrNotAttempted. Without a marketplace
// session nothing is attempted and ErrConfig is returned.
func (s *Service) RunAll(ctx context.Context) (*RunSummary, error) {
	if !s.executor.HasSession() {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, model.ErrAuthRequired)
	}

	searches, err := s.store.ListSearches()
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		CycleID: uuid.NewString(),
		Results: make(map[uint]*SearchResult, len(searches)),
		Order:   make([]uint, 0, len(searches)),
	}
	for _, search := range searches {
		summary.Order = append(summary.Order, search.ID)
		summary.Results[search.ID] = &SearchResult{
			SearchID: search.ID,
			Name:     search.Name,
			NewItems: make([]model.Item, 0),
			Err:      ErrNotAttempted,
		}
	}

	log := s.log.With().Str("cycle_id", summary.CycleID).Logger()
	log.Info().Int("searches", len(searches)).Msg("poll cycle started")

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, s.concurrency)
	)

dispatch:
	for _, search := range searches {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		if ctx.Err() != nil {
			<-sem
			break dispatch
		}

		wg.Add(1)
		go func(search model.SavedSearch) {
			defer wg.Done()
			defer func() { <-sem }()

			items, err := s.runListed(ctx, search)

			mu.Lock()
			defer mu.Unlock()
			res := summary.Results[search.ID]
			res.Err = err
			if err != nil {
				log.Error().Err(err).Uint("search_id", search.ID).Str("search", search.Name).Msg("search failed")
				return
			}
			res.NewItems = items
			summary.TotalNew += len(items)
		}(search)
	}

	wg.Wait()

	log.Info().
		Int("total_new", summary.TotalNew).
		Int("failed", len(summary.Failed())).
		Msg("poll cycle finished")

	return summary, nil
}

// runListed runs a search picked from a listing; it is reloaded under the
// lock in case it was deleted in the meantime
func (s *Service) runListed(ctx context.Context, listed model.SavedSearch) ([]model.Item, error) {
	unlock := s.locks.Lock(listed.ID)
	defer unlock()

	search, err := s.store.GetSearch(listed.ID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, *search)
}
