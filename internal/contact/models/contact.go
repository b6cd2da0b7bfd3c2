package models

import (
	"fmt"
	"strconv"
)

// RecordID identifies a stored document. Stores assign it on insert.
type RecordID int64

func (id RecordID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseRecordID parses a decimal identifier, as found in URLs and CLI args.
func ParseRecordID(s string) (RecordID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid record id %q", s)
	}
	return RecordID(n), nil
}

// Contact is a person's validated contact record.
//
// Invariants:
//   - FirstName and LastName are non-empty and hold no digit or punctuation
//     other than apostrophe and hyphen
//   - PhoneNumber is empty or a French phone number
//   - RecordID is set right after a successful save and cleared right after a
//     successful delete; the gateway never touches any other field
//
// Two contacts with the same first and last name are the same record.
type Contact struct {
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	PhoneNumber string    `json:"phone_number"`
	Address     string    `json:"address"`
	RecordID    *RecordID `json:"record_id,omitempty"`
}

// ContactOption configures optional fields of NewContact.
type ContactOption func(*Contact)

// WithRecordID attaches a stored identifier, used when rehydrating documents.
func WithRecordID(id RecordID) ContactOption {
	return func(c *Contact) {
		c.RecordID = &id
	}
}

// NewContact validates its input and returns a contact, or the first
// validation failure. No partially valid contact is ever returned.
func NewContact(firstName, lastName, phoneNumber, address string, opts ...ContactOption) (*Contact, error) {
	first, err := validateName(FieldFirstName, firstName)
	if err != nil {
		return nil, err
	}
	last, err := validateName(FieldLastName, lastName)
	if err != nil {
		return nil, err
	}
	phone, err := ValidatePhone(phoneNumber)
	if err != nil {
		return nil, err
	}
	c := &Contact{
		FirstName:   first,
		LastName:    last,
		PhoneNumber: phone,
		Address:     address,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FullName joins the current first and last names.
func (c *Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}

// HasRecord reports whether the contact is known to be stored.
func (c *Contact) HasRecord() bool {
	return c.RecordID != nil
}

// SetRecordID records the identifier returned by a save.
func (c *Contact) SetRecordID(id RecordID) {
	c.RecordID = &id
}

// ClearRecordID forgets the identifier after a delete.
func (c *Contact) ClearRecordID() {
	c.RecordID = nil
}

// String renders the display form: full name, address and phone number on
// three lines. Empty fields still produce their line.
func (c *Contact) String() string {
	return c.FullName() + "\n" + c.Address + "\n" + c.PhoneNumber
}

// GoString renders the contact as the constructor call that rebuilds it.
func (c *Contact) GoString() string {
	id := "nil"
	if c.RecordID != nil {
		id = c.RecordID.String()
	}
	return fmt.Sprintf("Contact(%q, %q, %q, %q, %s)", c.FirstName, c.LastName, c.PhoneNumber, c.Address, id)
}
