package leads

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Repository defines the lead reads and writes the dispatch engine needs.
type Repository interface {
	ListByOwner(ctx context.Context, ownerUserID string) ([]Lead, error)
	UpdateStatus(ctx context.Context, leadID, status string) error
}

// InMemoryRepository keeps leads in insertion order.
type InMemoryRepository struct {
	mu    sync.RWMutex
	order []string
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Add stores a copy of lead, assigning an ID when missing, and returns the stored copy.
func (r *InMemoryRepository) Add(lead Lead) Lead {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.Status == "" {
		lead.Status = StatusNew
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.leads[lead.ID]; !exists {
		r.order = append(r.order, lead.ID)
	}
	stored := lead
	r.leads[lead.ID] = &stored
	return stored
}

// ListByOwner returns copies of the owner's leads in insertion order.
func (r *InMemoryRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]Lead, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, ErrMissingOwner
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Lead
	for _, id := range r.order {
		lead := r.leads[id]
		if lead.OwnerUserID == ownerUserID {
			out = append(out, *lead)
		}
	}
	return out, nil
}

// UpdateStatus sets the lead's status.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, leadID, status string) error {
	if strings.TrimSpace(status) == "" {
		return ErrInvalidStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[leadID]
	if !ok {
		return ErrLeadNotFound
	}
	lead.Status = status
	return nil
}

// Get returns a copy of a stored lead.
func (r *InMemoryRepository) Get(leadID string) (Lead, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lead, ok := r.leads[leadID]
	if !ok {
		return Lead{}, false
	}
	return *lead, true
}
