package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielstefank/goodwill-alert/pkg/marketplace"
	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultCallTimeout bounds a single marketplace call
const DefaultCallTimeout = 30 * time.Second

// RetryPolicy bounds how transport failures are retried
type RetryPolicy struct {
	// Attempts is the total number of calls, including the first one
	Attempts int
	// Backoff is the wait before the second attempt; it doubles after that
	Backoff time.Duration
}

// DefaultRetryPolicy is 3 attempts starting at 1s backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: time.Second}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	return p.Backoff << uint(attempt-1)
}

// ExecutorOptions configures an Executor. Zero values fall back to defaults;
// RequestsPerSecond <= 0 disables call spacing.
type ExecutorOptions struct {
	Retry             RetryPolicy
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            *zerolog.Logger
}

// Executor runs translated queries against the marketplace. It holds the
// session but does no caching or deduplication.
type Executor struct {
	client  marketplace.Client
	retry   RetryPolicy
	timeout time.Duration
	limiter *rate.Limiter
	log     zerolog.Logger

	mu      sync.RWMutex
	session *marketplace.Session
}

// NewExecutor creates an Executor for client
func NewExecutor(client marketplace.Client, opts ExecutorOptions) *Executor {
	retry := opts.Retry
	if retry.Attempts <= 0 {
		retry.Attempts = DefaultRetryPolicy().Attempts
	}
	if retry.Backoff < 0 {
		retry.Backoff = 0
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Executor{
		client:  client,
		retry:   retry,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
		log:     loggerOrNop(opts.Logger),
	}
}

// Authenticate logs in and keeps the session for later calls
func (e *Executor) Authenticate(ctx context.Context, creds marketplace.Credentials) error {
	if creds.Empty() {
		return fmt.Errorf("%w: marketplace credentials missing", model.ErrConfig)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	session, err := e.client.Authenticate(ctx, creds)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	e.SetSession(session)
	e.log.Debug().Msg("marketplace session established")
	return nil
}

// SetSession replaces the current session
func (e *Executor) SetSession(session *marketplace.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = session
}

// HasSession reports whether calls can be made
func (e *Executor) HasSession() bool {
	return e.currentSession() != nil
}

func (e *Executor) currentSession() *marketplace.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// ExecuteOnce makes a single marketplace call
func (e *Executor) ExecuteOnce(ctx context.Context, query marketplace.Query) ([]marketplace.RawItem, error) {
	session := e.currentSession()
	if session == nil {
		return nil, model.ErrAuthRequired
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransport, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	items, err := e.client.Search(ctx, query, session)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]marketplace.RawItem, 0)
	}
	return items, nil
}

// Execute calls the marketplace, retrying transport failures with
// exponential backoff. Other errors are returned right away.
func (e *Executor) Execute(ctx context.Context, query marketplace.Query) ([]marketplace.RawItem, error) {
	var lastErr error
	for attempt := 1; attempt <= e.retry.Attempts; attempt++ {
		items, err := e.ExecuteOnce(ctx, query)
		if err == nil {
			return items, nil
		}
		lastErr = err

		if !errors.Is(err, model.ErrTransport) || attempt == e.retry.Attempts {
			break
		}

		wait := e.retry.delay(attempt)
		e.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("marketplace call failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lastErr
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func loggerOrNop(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}
