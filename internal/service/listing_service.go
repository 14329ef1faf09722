package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"studenthub/internal/location"
	"studenthub/internal/model"
	"studenthub/internal/repository"
)

// ListingSource is the remote store the orchestrator queries first.
type ListingSource interface {
	List(ctx context.Context, q model.ListingQuery, localities []string) ([]model.Entity, int, error)
}

// FallbackSource provides the static rows served when the remote store cannot.
type FallbackSource interface {
	Rows(kind model.Kind) []model.Entity
}

// RetryPolicy bounds remote attempts. MaxAttempts counts the first try.
type RetryPolicy struct {
	MaxAttempts int
	Timeout     time.Duration
	Backoff     func(attempt int) time.Duration
}

// LinearBackoff waits base*(attempt+1) after the attempt-th failure (0-based).
func LinearBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt+1)
	}
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Timeout:     8 * time.Second,
		Backoff:     LinearBackoff(time.Second),
	}
}

// ConnectionStatus reports where the last orchestrated read was served from.
type ConnectionStatus struct {
	Source    model.Source `json:"source"`
	CheckedAt time.Time    `json:"checkedAt"`
	Attempts  int          `json:"attempts"`
	LastError string       `json:"lastError,omitempty"`
}

// Offline is true once a read had to be served from the fallback dataset.
func (s ConnectionStatus) Offline() bool {
	return s.Source == model.SourceFallback
}

// ListingService runs location-scoped listing queries against the remote store,
// retrying transient failures and falling back to the static dataset.
type ListingService struct {
	remote   ListingSource
	fallback FallbackSource
	policy   RetryPolicy
	logger   *zap.Logger
	tracer   trace.Tracer

	isTransient func(error) bool

	mu      sync.RWMutex
	status  ConnectionStatus
	subs    map[int]func(ConnectionStatus)
	nextSub int
}

func NewListingService(remote ListingSource, fb FallbackSource, policy RetryPolicy, logger *zap.Logger) *ListingService {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Backoff == nil {
		policy.Backoff = func(int) time.Duration { return 0 }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingService{
		remote:      remote,
		fallback:    fb,
		policy:      policy,
		logger:      logger.Named("orchestrator"),
		tracer:      otel.Tracer("studenthub/internal/service"),
		isTransient: isRetryable,
		subs:        make(map[int]func(ConnectionStatus)),
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, model.ErrPermission) || errors.Is(err, model.ErrInvalidQuery) {
		return false
	}
	return errors.Is(err, model.ErrUnavailable) || repository.IsTransient(err)
}

// Fetch returns one page for q. It only fails on invalid queries or when ctx is
// done; every remote failure ends in a fallback result instead.
func (s *ListingService) Fetch(ctx context.Context, q model.ListingQuery) (model.ListingResult, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return model.ListingResult{}, fmt.Errorf("ListingService.Fetch: %w", err)
	}
	if q.Location == "" {
		return model.EmptyResult(), nil
	}
	localities := location.Aliases(q.Location)

	ctx, span := s.tracer.Start(ctx, "ListingService.Fetch", trace.WithAttributes(
		attribute.String("listing.kind", string(q.Kind)),
		attribute.Int("listing.page", q.Page),
		attribute.String("listing.location", q.Location),
	))
	defer span.End()

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < s.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, s.policy.Backoff(attempt-1)); err != nil {
				return model.ListingResult{}, err
			}
		}
		attempts++
		rows, total, err := s.attempt(ctx, q, localities, attempt)
		if err == nil {
			if len(rows) > 0 {
				s.setStatus(ConnectionStatus{Source: model.SourceRemote, CheckedAt: time.Now(), Attempts: attempts})
				span.SetAttributes(attribute.String("listing.source", string(model.SourceRemote)))
				return model.ListingResult{Rows: rows, TotalCount: total, Source: model.SourceRemote}, nil
			}
			lastErr = nil
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.ListingResult{}, ctxErr
		}
		lastErr = err
		if !s.isTransient(err) {
			s.logger.Warn("remote query failed, not retrying",
				zap.String("kind", string(q.Kind)), zap.Error(err))
			break
		}
	}

	res := s.fromFallback(q)
	st := ConnectionStatus{Source: model.SourceFallback, CheckedAt: time.Now(), Attempts: attempts}
	if lastErr != nil {
		st.LastError = lastErr.Error()
		span.RecordError(lastErr)
	}
	s.setStatus(st)
	span.SetAttributes(attribute.String("listing.source", string(model.SourceFallback)))
	s.logger.Info("serving fallback listings",
		zap.String("kind", string(q.Kind)),
		zap.String("location", q.Location),
		zap.Int("attempts", attempts),
		zap.Int("rows", len(res.Rows)))
	return res, nil
}

func (s *ListingService) attempt(ctx context.Context, q model.ListingQuery, localities []string, attempt int) ([]model.Entity, int, error) {
	ctx, span := s.tracer.Start(ctx, "ListingService.attempt", trace.WithAttributes(
		attribute.Int("attempt", attempt+1),
	))
	defer span.End()

	if s.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.policy.Timeout)
		defer cancel()
	}

	start := time.Now()
	rows, total, err := s.remote.List(ctx, q, localities)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		// some drivers report a server-side cancel instead of the context error
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("remote attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, 0, err
	}
	s.logger.Debug("remote attempt ok",
		zap.Int("attempt", attempt+1),
		zap.Int("rows", len(rows)),
		zap.Int("total", total),
		zap.Duration("elapsed", time.Since(start)))
	return rows, total, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *ListingService) fromFallback(q model.ListingQuery) model.ListingResult {
	res := model.ListingResult{Rows: []model.Entity{}, Source: model.SourceFallback}
	if s.fallback == nil {
		return res
	}
	matched := FilterRows(s.fallback.Rows(q.Kind), q)
	res.TotalCount = len(matched)

	from, to := q.Range()
	if from >= len(matched) {
		return res
	}
	if to >= len(matched) {
		to = len(matched) - 1
	}
	res.Rows = matched[from : to+1]
	return res
}

// FilterRows applies the query's location, search and filter predicates to rows
// and sorts the survivors by rating, highest first, keeping input order on ties.
func FilterRows(rows []model.Entity, q model.ListingQuery) []model.Entity {
	term := strings.ToLower(strings.TrimSpace(q.SearchTerm))
	out := make([]model.Entity, 0, len(rows))
	for _, e := range rows {
		city, state := e.Locality()
		if !location.Matches(q.Location, city, state) {
			continue
		}
		if term != "" {
			name, desc := e.Searchable()
			if !strings.Contains(strings.ToLower(name), term) && !strings.Contains(strings.ToLower(desc), term) {
				continue
			}
		}
		if !matchesFilters(e, q.Filters) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RatingValue() > out[j].RatingValue()
	})
	return out
}

func matchesFilters(e model.Entity, filters map[string]string) bool {
	for name, want := range filters {
		if want == "" {
			continue
		}
		if !strings.EqualFold(e.FilterValue(name), want) {
			return false
		}
	}
	return true
}

// Status returns the most recent connection status.
func (s *ListingService) Status() ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// OnStatus registers fn for every status update and returns its unsubscribe func.
func (s *ListingService) OnStatus(fn func(ConnectionStatus)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *ListingService) setStatus(st ConnectionStatus) {
	s.mu.Lock()
	s.status = st
	fns := make([]func(ConnectionStatus), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
