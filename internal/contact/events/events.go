// Package events publishes contact change notifications after a save or a
// delete has been committed to the store.
package events

import (
	"context"
	"time"

	"contactbook/internal/contact/models"
)

// Type names the change that happened.
type Type string

const (
	TypeSaved   Type = "contact.saved"
	TypeDeleted Type = "contact.deleted"
)

// Event describes one committed change.
type Event struct {
	Type        Type            `json:"type"`
	RecordID    models.RecordID `json:"record_id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	PhoneNumber string          `json:"phone_number,omitempty"`
	Address     string          `json:"address,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Saved builds the event for a contact that now holds its record id.
func Saved(c *models.Contact, now time.Time) Event {
	e := Event{
		Type:        TypeSaved,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		PhoneNumber: c.PhoneNumber,
		Address:     c.Address,
		OccurredAt:  now.UTC(),
	}
	if c.RecordID != nil {
		e.RecordID = *c.RecordID
	}
	return e
}

// Deleted builds the event for a removed document.
func Deleted(c *models.Contact, id models.RecordID, now time.Time) Event {
	return Event{
		Type:       TypeDeleted,
		RecordID:   id,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		OccurredAt: now.UTC(),
	}
}

// Key is the partitioning key; every event for one name pair shares it.
func (e Event) Key() string {
	return e.FirstName + "\x00" + e.LastName
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
