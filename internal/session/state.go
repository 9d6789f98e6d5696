package session

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"farm-dashboard/internal/optimization"
	"farm-dashboard/internal/projection"
)

var (
	// ErrStale is returned by Commit when a newer optimization request for the
	// same site was issued (or the view was closed) after the ticket.
	ErrStale = errors.New("optimization result superseded by a newer request")
	ErrNoRun = errors.New("no optimization run for site")
)

// Ticket identifies one in-flight optimization request.
type Ticket struct {
	SiteID int
	Seq    uint64
}

// Run is the current optimization view of one site.
type Run struct {
	ID        uuid.UUID
	SiteID    int
	Results   *optimization.ResultSet
	Selection projection.AxisSelection
	CreatedAt time.Time
}

// State holds the optimization runs of all sites.
type State struct {
	mu   sync.Mutex
	seq  map[int]uint64
	runs *expirable.LRU[int, *Run]
	now  func() time.Time
}

func New(size int, ttl time.Duration) *State {
	if size <= 0 {
		size = 64
	}
	return &State{
		seq:  make(map[int]uint64),
		runs: expirable.NewLRU[int, *Run](size, nil, ttl),
		now:  time.Now,
	}
}

// Begin registers a new optimization request for siteID. Every earlier ticket
// of that site becomes stale.
func (s *State) Begin(siteID int) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[siteID]++
	return Ticket{SiteID: siteID, Seq: s.seq[siteID]}
}

// Commit stores rs as the site's current run unless t is stale.
func (s *State) Commit(t Ticket, rs *optimization.ResultSet) (Run, error) {
	if rs == nil {
		return Run{}, errors.New("nil result set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq[t.SiteID] != t.Seq {
		return Run{}, errors.Wrapf(ErrStale, "site %d ticket %d (latest %d)", t.SiteID, t.Seq, s.seq[t.SiteID])
	}
	run := &Run{
		ID:        uuid.New(),
		SiteID:    t.SiteID,
		Results:   rs,
		Selection: projection.DefaultAxes,
		CreatedAt: s.now(),
	}
	s.runs.Add(t.SiteID, run)
	return *run, nil
}

// Current returns a snapshot of the site's run.
func (s *State) Current(siteID int) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs.Get(siteID)
	if !ok {
		return Run{}, errors.Wrapf(ErrNoRun, "site %d", siteID)
	}
	return *run, nil
}

// SetSelection remembers the last axis pair shown for the site's run.
func (s *State) SetSelection(siteID int, sel projection.AxisSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs.Get(siteID)
	if !ok {
		return errors.Wrapf(ErrNoRun, "site %d", siteID)
	}
	run.Selection = sel
	return nil
}

// Discard closes the site's view. In-flight requests become stale so a late
// response can't reopen it. Reports whether a run was removed.
func (s *State) Discard(siteID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[siteID]++
	return s.runs.Remove(siteID)
}

func (s *State) Len() int {
	return s.runs.Len()
}
