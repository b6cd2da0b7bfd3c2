package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"contactbook/internal/contact/models"
	"contactbook/internal/contact/store"
	"contactbook/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// columns lists the document fields the contacts table can hold.
var columns = map[string]struct{}{
	models.FieldFirstName:   {},
	models.FieldLastName:    {},
	models.FieldPhoneNumber: {},
	models.FieldAddress:     {},
}

// Store persists contact documents in the contacts table. The table carries a
// unique index on (first_name, last_name), so duplicate inserts surface as
// sentinel.ErrConflict instead of a second row.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed document store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, doc models.Document) (models.RecordID, error) {
	if err := checkFields(doc); err != nil {
		return 0, err
	}
	query := `
		INSERT INTO contacts (first_name, last_name, phone_number, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		doc[models.FieldFirstName],
		doc[models.FieldLastName],
		doc[models.FieldPhoneNumber],
		doc[models.FieldAddress],
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert contact: %w", translate(err))
	}
	return models.RecordID(id), nil
}

func (s *Store) Update(ctx context.Context, id models.RecordID, doc models.Document) error {
	if err := checkFields(doc); err != nil {
		return err
	}
	if len(doc) == 0 {
		_, err := s.Get(ctx, id)
		return err
	}

	fields := sortedKeys(doc)
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", f, i+1))
		args = append(args, doc[f])
	}
	args = append(args, int64(id))
	query := fmt.Sprintf(`UPDATE contacts SET %s, updated_at = now() WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update contact %d: %w", id, translate(err))
	}
	return requireOneRow(res, id)
}

func (s *Store) Remove(ctx context.Context, id models.RecordID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("remove contact %d: %w", id, err)
	}
	return requireOneRow(res, id)
}

func (s *Store) Get(ctx context.Context, id models.RecordID) (*models.StoredDocument, error) {
	query := `
		SELECT id, first_name, last_name, phone_number, address
		FROM contacts
		WHERE id = $1
	`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get contact %d: %w", id, err)
	}
	return doc, nil
}

func (s *Store) Find(ctx context.Context, where store.Where) ([]models.StoredDocument, error) {
	if err := checkFields(models.Document(where)); err != nil {
		return nil, err
	}
	fields := sortedKeys(models.Document(where))
	conds := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for i, f := range fields {
		conds = append(conds, fmt.Sprintf("%s = $%d", f, i+1))
		args = append(args, where[f])
	}
	query := `SELECT id, first_name, last_name, phone_number, address FROM contacts`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"
	return s.query(ctx, query, args...)
}

func (s *Store) All(ctx context.Context) ([]models.StoredDocument, error) {
	return s.Find(ctx, nil)
}

// Truncate empties the table and restarts the id sequence.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE contacts RESTART IDENTITY`); err != nil {
		return fmt.Errorf("truncate contacts: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]models.StoredDocument, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var docs []models.StoredDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return docs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.StoredDocument, error) {
	var (
		id                          int64
		first, last, phone, address string
	)
	if err := row.Scan(&id, &first, &last, &phone, &address); err != nil {
		return nil, err
	}
	return &models.StoredDocument{
		ID: models.RecordID(id),
		Fields: models.Document{
			models.FieldFirstName:   first,
			models.FieldLastName:    last,
			models.FieldPhoneNumber: phone,
			models.FieldAddress:     address,
		},
	}, nil
}

func checkFields(doc models.Document) error {
	for f := range doc {
		if _, ok := columns[f]; !ok {
			return fmt.Errorf("contacts table has no field %q", f)
		}
	}
	return nil
}

func sortedKeys(doc models.Document) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func requireOneRow(res sql.Result, id models.RecordID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("contact %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("document %d: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", sentinel.ErrConflict, pqErr.Message)
	}
	return err
}
