package billing

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("billing: document not found")
	// ErrConflict is returned when a write is based on a stale version.
	ErrConflict = errors.New("billing: document was modified concurrently")
)

// Filter narrows document listings. A zero PerPage returns every match.
type Filter struct {
	Kind    Kind
	Status  Status
	PartyID string
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}

func (f Filter) matches(d Document) bool {
	if f.Kind != "" && d.Kind != f.Kind {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.PartyID != "" && d.PartyID != f.PartyID {
		return false
	}
	if !f.From.IsZero() && d.Settings.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && d.Settings.Date.After(f.To) {
		return false
	}
	return true
}

// Store persists documents and allocates invoice numbers.
type Store interface {
	Create(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	List(ctx context.Context, f Filter) ([]Document, int, error)
	// Update replaces doc if the stored version equals doc.Version and
	// returns it with the version incremented.
	Update(ctx context.Context, doc Document) (Document, error)
	Delete(ctx context.Context, id string) error
	NextNumber(ctx context.Context, kind Kind) (int64, error)
}
