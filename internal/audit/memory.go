package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/leadgen-dispatch/internal/scripts"
)

// FlagMarker sets a sent-flag on a stored script.
type FlagMarker interface {
	MarkSent(ctx context.Context, scriptID string, flag scripts.Flag) error
}

// MemoryRecorder keeps the trail in process memory. Flag updates are delegated
// to marker, typically a scripts.InMemoryStore.
type MemoryRecorder struct {
	mu           sync.Mutex
	marker       FlagMarker
	interactions []Interaction
	delivered    map[string]struct{}
	now          func() time.Time
}

// NewMemoryRecorder builds an in-memory recorder.
func NewMemoryRecorder(marker FlagMarker) *MemoryRecorder {
	return &MemoryRecorder{
		marker:    marker,
		delivered: make(map[string]struct{}),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ Recorder = (*MemoryRecorder)(nil)

func (r *MemoryRecorder) RecordDelivery(ctx context.Context, d Delivery) (bool, error) {
	d, _, err := prepareDelivery(d)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.marker != nil {
		if err := r.marker.MarkSent(ctx, d.ScriptID, d.Flag); err != nil {
			return false, err
		}
	}
	if _, ok := r.delivered[d.Interaction.DeliveryKey]; ok {
		return false, nil
	}
	r.delivered[d.Interaction.DeliveryKey] = struct{}{}
	r.interactions = append(r.interactions, r.fill(d.Interaction))
	return true, nil
}

func (r *MemoryRecorder) AppendInteraction(ctx context.Context, in Interaction) (Interaction, error) {
	if err := validateInteraction(in); err != nil {
		return Interaction{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	in = r.fill(in)
	r.interactions = append(r.interactions, in)
	return in, nil
}

// ListByUser returns the newest interactions first.
func (r *MemoryRecorder) ListByUser(ctx context.Context, userID string, limit int) ([]Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Interaction
	for i := len(r.interactions) - 1; i >= 0; i-- {
		if r.interactions[i].UserID == userID {
			out = append(out, r.interactions[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns every recorded interaction in append order.
func (r *MemoryRecorder) All() []Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Interaction, len(r.interactions))
	copy(out, r.interactions)
	return out
}

func (r *MemoryRecorder) fill(in Interaction) Interaction {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = r.now()
	}
	return in
}
