package usecase

import (
	"sync"
	"time"

	"github.com/veralend/loandocs/internal/core/domain"
)

// SyncGate enforces at-most-one concurrent sync per loan. Acquire returns a
// release func the caller defers, so the flag is cleared on every path and a
// failed sync can never wedge a loan.
type SyncGate struct {
	mu       sync.Mutex
	inFlight map[string]time.Time
}

func NewSyncGate() *SyncGate {
	return &SyncGate{inFlight: make(map[string]time.Time)}
}

func (g *SyncGate) Acquire(loanID string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[loanID]; busy {
		return nil, domain.ErrSyncInProgress
	}
	g.inFlight[loanID] = time.Now().UTC()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, loanID)
			g.mu.Unlock()
		})
	}, nil
}

// InFlightSince reports whether a sync is running for the loan and when it
// started.
func (g *SyncGate) InFlightSince(loanID string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	since, ok := g.inFlight[loanID]
	return since, ok
}
