// Package browse drives one listing page per session: it owns the page, search
// term and filters, asks the orchestrator for rows and keeps only the newest answer.
package browse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"studenthub/internal/location"
	"studenthub/internal/model"
)

var ErrClosed = errors.New("browse: controller closed")

// Fetcher runs one orchestrated listing query.
type Fetcher interface {
	Fetch(ctx context.Context, q model.ListingQuery) (model.ListingResult, error)
}

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// Display is what the page should render for the current state.
type Display string

const (
	DisplayLoading    Display = "loading"
	DisplayResults    Display = "results"
	DisplayEmpty      Display = "empty"
	DisplayNoLocation Display = "no_location"
	DisplayError      Display = "error"
)

type State struct {
	Kind       model.Kind        `json:"kind"`
	Phase      Phase             `json:"phase"`
	Display    Display           `json:"display"`
	Location   string            `json:"location"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	SearchTerm string            `json:"search"`
	Filters    map[string]string `json:"filters"`
	Rows       []model.Entity    `json:"rows"`
	TotalCount int               `json:"totalCount"`
	Source     model.Source      `json:"source,omitempty"`
	Offline    bool              `json:"offline"`
	Error      string            `json:"error,omitempty"`
}

func (s State) clone() State {
	out := s
	out.Rows = append([]model.Entity(nil), s.Rows...)
	if out.Rows == nil {
		out.Rows = []model.Entity{}
	}
	out.Filters = make(map[string]string, len(s.Filters))
	for k, v := range s.Filters {
		out.Filters[k] = v
	}
	return out
}

func (s State) query() model.ListingQuery {
	filters := make(map[string]string, len(s.Filters))
	for k, v := range s.Filters {
		filters[k] = v
	}
	return model.ListingQuery{
		Kind:       s.Kind,
		Page:       s.Page,
		SearchTerm: s.SearchTerm,
		Filters:    filters,
		Location:   s.Location,
	}
}

// Controller is safe for concurrent use. Every trigger supersedes the fetch in
// flight: its context is canceled and its answer, if any, is dropped.
type Controller struct {
	fetcher Fetcher
	loc     *location.Context
	logger  *zap.Logger

	mu     sync.Mutex
	state  State
	seq    uint64
	cancel context.CancelFunc
	closed bool

	unsubscribe func()
	wg          sync.WaitGroup
}

// New builds an idle controller for kind and starts following loc.
func New(kind model.Kind, fetcher Fetcher, loc *location.Context, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		fetcher: fetcher,
		loc:     loc,
		logger:  logger.Named("browse").With(zap.String("kind", string(kind))),
		state: State{
			Kind:       kind,
			Phase:      PhaseIdle,
			Display:    DisplayLoading,
			Page:       1,
			TotalPages: 1,
			Filters:    map[string]string{},
			Rows:       []model.Entity{},
		},
	}
	c.unsubscribe = loc.Subscribe(c.locationChanged)
	return c
}

func (c *Controller) locationChanged(string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		_, _ = c.run(context.Background(), func(s *State) { s.Page = 1 })
	}()
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

func (c *Controller) Load(ctx context.Context) (State, error) {
	return c.run(ctx, nil)
}

func (c *Controller) Retry(ctx context.Context) (State, error) {
	return c.run(ctx, nil)
}

// SetPage moves to page, clamped to the pages the last result reported.
func (c *Controller) SetPage(ctx context.Context, page int) (State, error) {
	return c.run(ctx, func(s *State) {
		last := model.TotalPages(s.TotalCount)
		switch {
		case page < 1:
			page = 1
		case page > last:
			page = last
		}
		s.Page = page
	})
}

// SetSearchTerm replaces the search term and goes back to page 1.
func (c *Controller) SetSearchTerm(ctx context.Context, term string) (State, error) {
	term = strings.TrimSpace(term)
	return c.run(ctx, func(s *State) {
		s.SearchTerm = term
		s.Page = 1
	})
}

// SetFilter sets one filter and goes back to page 1. An empty value clears it.
func (c *Controller) SetFilter(ctx context.Context, name, value string) (State, error) {
	if !c.kind().AllowsFilter(name) {
		return c.State(), fmt.Errorf("%w: filter %q not supported for %s", model.ErrInvalidQuery, name, c.kind())
	}
	value = strings.TrimSpace(value)
	return c.run(ctx, func(s *State) {
		if value == "" {
			delete(s.Filters, name)
		} else {
			s.Filters[name] = value
		}
		s.Page = 1
	})
}

func (c *Controller) kind() model.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Kind
}

// run applies mutate, starts a fetch and waits for it. The returned state is the
// controller's state once the fetch settled, which may already belong to a newer
// trigger. The fetch ignores ctx cancellation; only a newer trigger or Close stops it.
func (c *Controller) run(ctx context.Context, mutate func(*State)) (State, error) {
	c.mu.Lock()
	if c.closed {
		st := c.state.clone()
		c.mu.Unlock()
		return st, ErrClosed
	}
	if mutate != nil {
		mutate(&c.state)
	}
	c.state.Location = c.loc.Get()
	c.seq++
	seq := c.seq
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if c.state.Location == "" {
		c.state.Phase = PhaseSuccess
		c.state.Display = DisplayNoLocation
		c.state.Rows = []model.Entity{}
		c.state.TotalCount = 0
		c.state.TotalPages = 1
		c.state.Page = 1
		c.state.Source = model.SourceNone
		c.state.Offline = false
		c.state.Error = ""
		st := c.state.clone()
		c.mu.Unlock()
		return st, nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.state.Phase = PhaseLoading
	c.state.Display = DisplayLoading
	c.state.Error = ""
	q := c.state.query()
	c.mu.Unlock()

	res, err := c.fetcher.Fetch(runCtx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq || c.closed {
		cancel()
		c.logger.Debug("dropping stale result", zap.Uint64("seq", seq), zap.Uint64("latest", c.seq))
		return c.state.clone(), nil
	}
	cancel()
	c.cancel = nil

	if err != nil {
		c.state.Phase = PhaseError
		c.state.Display = DisplayError
		c.state.Error = err.Error()
		c.state.Rows = []model.Entity{}
		c.state.TotalCount = 0
		c.state.TotalPages = 1
		c.state.Source = ""
		c.state.Offline = false
		c.logger.Warn("listing fetch failed", zap.Error(err))
		return c.state.clone(), nil
	}

	c.state.Phase = PhaseSuccess
	c.state.Rows = res.Rows
	c.state.TotalCount = res.TotalCount
	c.state.TotalPages = model.TotalPages(res.TotalCount)
	c.state.Source = res.Source
	c.state.Offline = res.Source == model.SourceFallback
	if len(res.Rows) == 0 {
		c.state.Display = DisplayEmpty
	} else {
		c.state.Display = DisplayResults
	}
	return c.state.clone(), nil
}

// Close stops following the location, cancels the fetch in flight and waits for
// background refreshes to finish. Triggers after Close return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.unsubscribe()
	c.wg.Wait()
}
