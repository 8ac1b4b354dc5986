package contracts

import (
	"errors"
	"fmt"
	"sync"
)

var errDuplicateContract = errors.New("contracts: duplicate contract id")

// Store is the in-process source of truth for the contract collection, newest first.
// Reads return clones; mutation happens only through Update.
type Store struct {
	mu    sync.RWMutex
	order []ContractID
	byID  map[ContractID]*Contract
}

// Stats summarizes the collection for the dashboard.
type Stats struct {
	Total     int
	Completed int
	Pending   int
	Archived  int
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[ContractID]*Contract)}
}

// Prepend inserts a contract at the head of the collection.
func (s *Store) Prepend(contract Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[contract.ID]; exists {
		return fmt.Errorf("%w: %s", errDuplicateContract, contract.ID)
	}
	stored := contract.Clone()
	s.byID[contract.ID] = &stored
	s.order = append([]ContractID{contract.ID}, s.order...)
	return nil
}

// Get returns a copy of the contract with the given id.
func (s *Store) Get(id ContractID) (Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.byID[id]
	if !ok {
		return Contract{}, fmt.Errorf("%w: %s", ErrContractNotFound, id)
	}
	return stored.Clone(), nil
}

// List returns copies of every contract, newest first.
func (s *Store) List() []Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Contract, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.byID[id].Clone())
	}
	return result
}

// Update applies mutate to a working copy and commits it only when mutate succeeds,
// so a refused transition never leaves partial changes behind.
func (s *Store) Update(id ContractID, mutate func(*Contract) error) (Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[id]
	if !ok {
		return Contract{}, fmt.Errorf("%w: %s", ErrContractNotFound, id)
	}
	working := stored.Clone()
	if err := mutate(&working); err != nil {
		return stored.Clone(), err
	}
	s.byID[id] = &working
	return working.Clone(), nil
}

// Stats counts contracts per derived status.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{Total: len(s.order)}
	for _, id := range s.order {
		switch s.byID[id].Status() {
		case StatusCompleted:
			stats.Completed++
		case StatusArchived:
			stats.Archived++
		default:
			stats.Pending++
		}
	}
	return stats
}
