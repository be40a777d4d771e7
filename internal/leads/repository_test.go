package leads

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryRepository_ListByOwner(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	first := repo.Add(Lead{OwnerUserID: "user-1", CompanyName: "Alpha"})
	repo.Add(Lead{OwnerUserID: "user-2", CompanyName: "Other"})
	second := repo.Add(Lead{OwnerUserID: "user-1", CompanyName: "Beta"})

	got, err := repo.ListByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("expected insertion order, got %q then %q", got[0].CompanyName, got[1].CompanyName)
	}
	if got[0].Status != StatusNew {
		t.Fatalf("expected default status %q, got %q", StatusNew, got[0].Status)
	}
}

func TestInMemoryRepository_ListReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	lead := repo.Add(Lead{OwnerUserID: "user-1", CompanyName: "Alpha"})

	got, _ := repo.ListByOwner(context.Background(), "user-1")
	got[0].CompanyName = "mutated"

	stored, _ := repo.Get(lead.ID)
	if stored.CompanyName != "Alpha" {
		t.Fatalf("expected stored lead untouched, got %q", stored.CompanyName)
	}
}

func TestInMemoryRepository_MissingOwner(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.ListByOwner(context.Background(), " "); !errors.Is(err, ErrMissingOwner) {
		t.Fatalf("expected ErrMissingOwner, got %v", err)
	}
}

func TestInMemoryRepository_UpdateStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	lead := repo.Add(Lead{OwnerUserID: "user-1", CompanyName: "Alpha"})

	if err := repo.UpdateStatus(ctx, lead.ID, StatusInterested); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.Get(lead.ID)
	if stored.Status != StatusInterested {
		t.Fatalf("expected status %q, got %q", StatusInterested, stored.Status)
	}
	if err := repo.UpdateStatus(ctx, "missing", StatusInterested); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, lead.ID, ""); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestLeadWhatsAppNumber(t *testing.T) {
	if got := (Lead{Phone: "111", WhatsApp: " 222 "}).WhatsAppNumber(); got != "222" {
		t.Fatalf("expected whatsapp field, got %q", got)
	}
	if got := (Lead{Phone: "111"}).WhatsAppNumber(); got != "111" {
		t.Fatalf("expected phone fallback, got %q", got)
	}
}

func TestLeadContactable(t *testing.T) {
	if (Lead{}).Contactable() {
		t.Fatal("empty lead should not be contactable")
	}
	if !(Lead{Email: "a@b.com"}).Contactable() {
		t.Fatal("lead with email should be contactable")
	}
}
