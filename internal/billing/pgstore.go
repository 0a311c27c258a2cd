package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps documents in Postgres with lines, payments and
// settings stored as JSONB.
type PostgresStore struct {
	DB DB
}

const (
	documentColumns = `id, kind, status, party_id, party_name, settings, lines, payments, notes, version, created_at, updated_at, issued_at`
	selectColumns   = `id::text, kind, status, party_id, party_name, settings, lines, payments, notes, version, created_at, updated_at, issued_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc                       Document
		settings, lines, payments []byte
	)
	if err := row.Scan(&doc.ID, &doc.Kind, &doc.Status, &doc.PartyID, &doc.PartyName,
		&settings, &lines, &payments, &doc.Notes, &doc.Version,
		&doc.CreatedAt, &doc.UpdatedAt, &doc.IssuedAt); err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(settings, &doc.Settings); err != nil {
		return Document{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := json.Unmarshal(lines, &doc.Lines); err != nil {
		return Document{}, fmt.Errorf("decode lines: %w", err)
	}
	if err := json.Unmarshal(payments, &doc.Payments); err != nil {
		return Document{}, fmt.Errorf("decode payments: %w", err)
	}
	return doc, nil
}

type encodedDocument struct {
	settings, lines, payments []byte
	date                      *time.Time
}

func encodeDocument(doc Document) (encodedDocument, error) {
	var (
		enc encodedDocument
		err error
	)
	if enc.settings, err = json.Marshal(doc.Settings); err != nil {
		return enc, err
	}
	if doc.Lines == nil {
		doc.Lines = []Line{}
	}
	if enc.lines, err = json.Marshal(doc.Lines); err != nil {
		return enc, err
	}
	if doc.Payments == nil {
		doc.Payments = []Payment{}
	}
	if enc.payments, err = json.Marshal(doc.Payments); err != nil {
		return enc, err
	}
	if !doc.Settings.Date.IsZero() {
		d := doc.Settings.Date
		enc.date = &d
	}
	return enc, nil
}

func (s *PostgresStore) Create(ctx context.Context, doc Document) (Document, error) {
	enc, err := encodeDocument(doc)
	if err != nil {
		return Document{}, err
	}
	doc.Version = 1
	_, err = s.DB.Exec(ctx, `INSERT INTO documents (`+documentColumns+`, doc_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		doc.ID, doc.Kind, doc.Status, doc.PartyID, doc.PartyName,
		enc.settings, enc.lines, enc.payments, doc.Notes, doc.Version,
		doc.CreatedAt, doc.UpdatedAt, doc.IssuedAt, enc.date)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Document{}, ErrConflict
		}
		return Document{}, err
	}
	return doc, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Document, error) {
	doc, err := scanDocument(s.DB.QueryRow(ctx, `SELECT `+selectColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// listQuery builds the WHERE clause and arguments for f.
func listQuery(f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.PartyID != "" {
		add("party_id = $%d", f.PartyID)
	}
	if !f.From.IsZero() {
		add("doc_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("doc_date <= $%d", f.To)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Document, int, error) {
	where, args := listQuery(f)

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT count(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + selectColumns + ` FROM documents` + where + ` ORDER BY created_at DESC, id DESC`
	if f.PerPage > 0 {
		page := f.Page
		if page <= 0 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PerPage, (page-1)*f.PerPage)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, doc Document) (Document, error) {
	enc, err := encodeDocument(doc)
	if err != nil {
		return Document{}, err
	}
	tag, err := s.DB.Exec(ctx, `UPDATE documents SET
		status = $3, party_id = $4, party_name = $5, settings = $6, lines = $7, payments = $8,
		notes = $9, version = version + 1, updated_at = $10, issued_at = $11, doc_date = $12
		WHERE id = $1 AND version = $2`,
		doc.ID, doc.Version, doc.Status, doc.PartyID, doc.PartyName,
		enc.settings, enc.lines, enc.payments, doc.Notes, doc.UpdatedAt, doc.IssuedAt, enc.date)
	if err != nil {
		return Document{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, doc.ID); err != nil {
			return Document{}, err
		}
		return Document{}, ErrConflict
	}
	doc.Version++
	return doc, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) NextNumber(ctx context.Context, kind Kind) (int64, error) {
	var n int64
	err := s.DB.QueryRow(ctx, `INSERT INTO document_sequences (kind, value) VALUES ($1, 1)
		ON CONFLICT (kind) DO UPDATE SET value = document_sequences.value + 1
		RETURNING value`, string(kind)).Scan(&n)
	return n, err
}
