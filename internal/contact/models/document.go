package models

import "fmt"

// Document is the flat field map persisted for a contact. The identifier is
// never part of it; stores keep it alongside.
type Document map[string]string

// StoredDocument pairs a document with the identifier its store assigned.
type StoredDocument struct {
	ID     RecordID
	Fields Document
}

// ToDocument serializes the four stored fields.
func (c *Contact) ToDocument() Document {
	return Document{
		FieldFirstName:   c.FirstName,
		FieldLastName:    c.LastName,
		FieldPhoneNumber: c.PhoneNumber,
		FieldAddress:     c.Address,
	}
}

// Clone returns an independent copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// MatchesName reports whether the document belongs to the given name pair.
func (d Document) MatchesName(firstName, lastName string) bool {
	return d[FieldFirstName] == firstName && d[FieldLastName] == lastName
}

// ContactFromDocument rebuilds a contact from a stored document, validating
// every field exactly as new input is validated. A failure here means the
// store holds corrupt data.
func ContactFromDocument(doc StoredDocument) (*Contact, error) {
	c, err := NewContact(
		doc.Fields[FieldFirstName],
		doc.Fields[FieldLastName],
		doc.Fields[FieldPhoneNumber],
		doc.Fields[FieldAddress],
		WithRecordID(doc.ID),
	)
	if err != nil {
		return nil, fmt.Errorf("document %d: %w", doc.ID, err)
	}
	return c, nil
}
