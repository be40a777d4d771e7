package scripts

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store lists a campaign's scripts in the store's natural order. Only scripts
// owned by ownerUserID are returned, so another user's campaign reads as empty.
type Store interface {
	ListByCampaign(ctx context.Context, campaignID, ownerUserID string) ([]Script, error)
}

// InMemoryStore keeps scripts in insertion order.
type InMemoryStore struct {
	mu      sync.RWMutex
	order   []string
	scripts map[string]*Script
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{scripts: make(map[string]*Script)}
}

// Add stores a copy of script, assigning an ID when missing.
func (s *InMemoryStore) Add(script Script) Script {
	if script.ID == "" {
		script.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scripts[script.ID]; !exists {
		s.order = append(s.order, script.ID)
	}
	stored := script
	s.scripts[script.ID] = &stored
	return stored
}

// ListByCampaign returns copies of the owner's scripts in the campaign.
func (s *InMemoryStore) ListByCampaign(ctx context.Context, campaignID, ownerUserID string) ([]Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Script
	for _, id := range s.order {
		script := s.scripts[id]
		if script.CampaignID == campaignID && script.OwnerUserID == ownerUserID {
			out = append(out, *script)
		}
	}
	return out, nil
}

// MarkSent sets a flag to true. It is idempotent.
func (s *InMemoryStore) MarkSent(ctx context.Context, scriptID string, flag Flag) error {
	if _, err := flag.Column(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	script, ok := s.scripts[scriptID]
	if !ok {
		return ErrScriptNotFound
	}
	switch flag {
	case FlagWhatsAppSent:
		script.WhatsAppSent = true
	case FlagEmailSent:
		script.EmailSent = true
	case FlagCallMade:
		script.CallMade = true
	}
	return nil
}

// ResetFlag clears a sent flag so the script goes out again on the next run.
func (s *InMemoryStore) ResetFlag(scriptID string, flag Flag) error {
	if _, err := flag.Column(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	script, ok := s.scripts[scriptID]
	if !ok {
		return ErrScriptNotFound
	}
	switch flag {
	case FlagWhatsAppSent:
		script.WhatsAppSent = false
	case FlagEmailSent:
		script.EmailSent = false
	case FlagCallMade:
		script.CallMade = false
	}
	return nil
}

// Get returns a copy of a stored script.
func (s *InMemoryStore) Get(scriptID string) (Script, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	script, ok := s.scripts[scriptID]
	if !ok {
		return Script{}, false
	}
	return *script, true
}
