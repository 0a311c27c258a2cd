package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	doc, err := store.Create(ctx, Document{ID: uuid.NewString(), Kind: KindSales, Status: StatusDraft, Lines: []Line{{}}})
	require.NoError(t, err)
	require.Equal(t, 1, doc.Version)

	stale := doc
	doc.Notes = "first"
	doc, err = store.Update(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Version)

	stale.Notes = "second"
	_, err = store.Update(ctx, stale)
	require.ErrorIs(t, err, ErrConflict)

	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "first", got.Notes)

	got.Lines[0].Name = "mutated"
	again, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Empty(t, again.Lines[0].Name)

	_, err = store.Create(ctx, doc)
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, store.Delete(ctx, doc.ID))
	require.ErrorIs(t, store.Delete(ctx, doc.ID), ErrNotFound)
	_, err = store.Update(ctx, doc)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		kind := KindSales
		if i%2 == 1 {
			kind = KindPurchase
		}
		_, err := store.Create(ctx, Document{
			ID:        uuid.NewString(),
			Kind:      kind,
			Status:    StatusDraft,
			Notes:     string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	docs, total, err := store.List(ctx, Filter{Kind: KindSales, Page: 1, PerPage: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, docs, 2)
	require.Equal(t, "e", docs[0].Notes)
	require.Equal(t, "c", docs[1].Notes)

	docs, _, err = store.List(ctx, Filter{Kind: KindSales, Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "a", docs[0].Notes)
}

func TestMemoryStoreNumbersAreSequentialPerKind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for want := int64(1); want <= 3; want++ {
		n, err := store.NextNumber(ctx, KindSales)
		require.NoError(t, err)
		require.Equal(t, want, n)
	}
	n, err := store.NextNumber(ctx, KindPurchase)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, "PO-000042", KindPurchase.FormatNumber(42))
	require.Equal(t, "INV-000007", KindSales.FormatNumber(7))
}

func TestFilterMatchesDateRange(t *testing.T) {
	d := Document{Kind: KindSales, Status: StatusIssued}
	d.Settings.Date = time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	require.True(t, Filter{}.matches(d))
	require.True(t, Filter{From: time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)}.matches(d))
	require.False(t, Filter{From: time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)}.matches(d))
	require.False(t, Filter{To: time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)}.matches(d))
	require.False(t, Filter{Status: StatusDraft}.matches(d))
}

func TestListQuery(t *testing.T) {
	where, args := listQuery(Filter{})
	require.Empty(t, where)
	require.Empty(t, args)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args = listQuery(Filter{Kind: KindPurchase, Status: StatusIssued, PartyID: "s1", From: from})
	require.Equal(t, " WHERE kind = $1 AND status = $2 AND party_id = $3 AND doc_date >= $4", where)
	require.Equal(t, []any{"purchase", "issued", "s1", from}, args)
}

func TestMigrationURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/app?sslmode=disable", migrationURL("postgres://u:p@db:5432/app?sslmode=disable"))
	require.Equal(t, "pgx5://db/app", migrationURL("postgresql://db/app"))
	require.Equal(t, "pgx5://db/app", migrationURL("pgx5://db/app"))
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
