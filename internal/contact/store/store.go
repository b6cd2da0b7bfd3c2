// Package store defines the document store port the contact gateway persists
// through. Implementations live in the memory, file, postgres and redis
// subpackages and must all behave the same way:
//
//   - identifiers are assigned by the store on Insert, start at 1 and increase
//   - Update, Remove and Get return sentinel.ErrNotFound for unknown identifiers
//   - All and Find return documents in insertion order
//   - Truncate empties the store and restarts identifiers at 1
package store

import (
	"context"

	"contactbook/internal/contact/models"
)

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks

// Where is a conjunction of field equality predicates. An empty Where matches
// every document.
type Where map[string]string

// Matches reports whether doc satisfies every predicate.
func (w Where) Matches(doc models.Document) bool {
	for field, want := range w {
		if doc[field] != want {
			return false
		}
	}
	return true
}

// ByName selects documents stored under a first and last name pair.
func ByName(firstName, lastName string) Where {
	return Where{
		models.FieldFirstName: firstName,
		models.FieldLastName:  lastName,
	}
}

// DocumentStore is a collection of flat documents addressed by store-assigned
// integer identifiers.
type DocumentStore interface {
	Insert(ctx context.Context, doc models.Document) (models.RecordID, error)
	Update(ctx context.Context, id models.RecordID, doc models.Document) error
	Remove(ctx context.Context, id models.RecordID) error
	Get(ctx context.Context, id models.RecordID) (*models.StoredDocument, error)
	Find(ctx context.Context, where Where) ([]models.StoredDocument, error)
	All(ctx context.Context) ([]models.StoredDocument, error)
	Truncate(ctx context.Context) error
	Close() error
}
