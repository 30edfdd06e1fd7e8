package collector

import (
	"sync"

	"github.com/samnmbuguah/FundingRate/internal/funding"
)

// Snapshots holds the last published opportunity set per exchange. Sets are
// replaced wholesale, so readers always see a complete ranking.
type Snapshots struct {
	mu   sync.RWMutex
	sets map[string]*funding.OpportunitySet
}

// NewSnapshots creates an empty snapshot registry.
func NewSnapshots() *Snapshots {
	return &Snapshots{sets: make(map[string]*funding.OpportunitySet)}
}

// Publish replaces the snapshot for the set's exchange.
func (s *Snapshots) Publish(set *funding.OpportunitySet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets[set.Exchange] = set
}

// Get returns the last published set for an exchange.
func (s *Snapshots) Get(exchange string) (*funding.OpportunitySet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[exchange]
	return set, ok
}
