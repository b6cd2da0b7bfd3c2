// Package service is the persistence gateway for contacts. It upserts,
// looks up, deletes and lists contacts in a document store, keyed by the
// (first_name, last_name) pair.
//
// Save and Delete are a lookup followed by a write. Unless the gateway is built
// with WithSerializedWrites, nothing makes that sequence atomic: two callers
// saving the same name pair at once may create duplicate documents or lose an
// update.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contactmetrics "contactbook/internal/contact/metrics"
	"contactbook/internal/contact/models"
	"contactbook/internal/contact/store"
	dErrors "contactbook/pkg/domain-errors"
	"contactbook/pkg/platform/sentinel"
)

const tracerName = "contactbook/internal/contact/service"

// Gateway persists contacts through a DocumentStore.
type Gateway struct {
	store   store.DocumentStore
	metrics *contactmetrics.Metrics
	tracer  trace.Tracer
	writeMu *sync.Mutex
}

// New builds a gateway over st.
func New(st store.DocumentStore, opts ...Option) *Gateway {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	tp := cfg.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	g := &Gateway{
		store:   st,
		metrics: cfg.metrics,
		tracer:  tp.Tracer(tracerName),
	}
	if cfg.serializedWrites {
		g.writeMu = &sync.Mutex{}
	}
	return g
}

// FindByName returns the document stored under the name pair, or nil when
// there is none. More than one match means the store was written around the
// upsert discipline; that is reported as a conflict rather than resolved by
// picking one.
func (g *Gateway) FindByName(ctx context.Context, firstName, lastName string) (*models.StoredDocument, error) {
	ctx, span := g.tracer.Start(ctx, "contact.FindByName")
	defer span.End()

	doc, err := g.findByName(ctx, firstName, lastName)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return doc, nil
}

func (g *Gateway) findByName(ctx context.Context, firstName, lastName string) (*models.StoredDocument, error) {
	docs, err := g.store.Find(ctx, store.ByName(firstName, lastName))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up contact")
	}
	switch len(docs) {
	case 0:
		return nil, nil
	case 1:
		return &docs[0], nil
	default:
		return nil, dErrors.Wrap(
			fmt.Errorf("%d documents for %s %s: %w", len(docs), firstName, lastName, sentinel.ErrConflict),
			dErrors.CodeConflict,
			"several stored contacts share this name",
		)
	}
}

// Save upserts the contact by name. An existing document for the same name
// pair is overwritten in place and keeps its identifier; otherwise a new
// document is inserted. The identifier is set on c and returned.
func (g *Gateway) Save(ctx context.Context, c *models.Contact) (models.RecordID, error) {
	ctx, span := g.tracer.Start(ctx, "contact.Save")
	defer span.End()
	defer g.metrics.ObserveOperation("save", time.Now())

	g.lockWrites()
	defer g.unlockWrites()

	id, outcome, err := g.upsert(ctx, c.ToDocument(), c.FirstName, c.LastName)
	if err != nil && errors.Is(err, sentinel.ErrConflict) && outcome == contactmetrics.OutcomeInserted {
		// Another writer inserted the same name pair between lookup and insert.
		id, outcome, err = g.upsert(ctx, c.ToDocument(), c.FirstName, c.LastName)
	}
	if err != nil {
		recordError(span, err)
		return 0, err
	}

	c.SetRecordID(id)
	g.metrics.IncrementSaved(outcome)
	span.SetAttributes(attribute.Int64("contact.record_id", int64(id)), attribute.String("contact.outcome", outcome))
	return id, nil
}

func (g *Gateway) upsert(ctx context.Context, doc models.Document, firstName, lastName string) (models.RecordID, string, error) {
	existing, err := g.findByName(ctx, firstName, lastName)
	if err != nil {
		return 0, "", err
	}
	if existing != nil {
		if err := g.store.Update(ctx, existing.ID, doc); err != nil {
			return 0, contactmetrics.OutcomeUpdated, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update contact")
		}
		return existing.ID, contactmetrics.OutcomeUpdated, nil
	}

	id, err := g.store.Insert(ctx, doc)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return 0, contactmetrics.OutcomeInserted, dErrors.Wrap(err, dErrors.CodeConflict, "contact already exists")
		}
		return 0, contactmetrics.OutcomeInserted, dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert contact")
	}
	return id, contactmetrics.OutcomeInserted, nil
}

// Delete removes the document stored under c's name pair. It returns the
// removed identifier and clears c's RecordID, or returns nil and leaves c
// untouched when no document matches. The lookup key is the name, never a
// RecordID the contact may carry.
func (g *Gateway) Delete(ctx context.Context, c *models.Contact) (*models.RecordID, error) {
	ctx, span := g.tracer.Start(ctx, "contact.Delete")
	defer span.End()
	defer g.metrics.ObserveOperation("delete", time.Now())

	g.lockWrites()
	defer g.unlockWrites()

	existing, err := g.findByName(ctx, c.FirstName, c.LastName)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if err := g.store.Remove(ctx, existing.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Removed by someone else since the lookup.
			return nil, nil
		}
		wrapped := dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete contact")
		recordError(span, wrapped)
		return nil, wrapped
	}

	c.ClearRecordID()
	g.metrics.IncrementDeleted()
	id := existing.ID
	return &id, nil
}

// ListAll rehydrates every stored document in store order. A document that no
// longer validates fails the whole call; corrupt data is never skipped.
func (g *Gateway) ListAll(ctx context.Context) ([]*models.Contact, error) {
	ctx, span := g.tracer.Start(ctx, "contact.ListAll")
	defer span.End()
	defer g.metrics.ObserveOperation("list", time.Now())

	docs, err := g.store.All(ctx)
	if err != nil {
		wrapped := dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contacts")
		recordError(span, wrapped)
		return nil, wrapped
	}

	contacts := make([]*models.Contact, 0, len(docs))
	for _, doc := range docs {
		c, err := models.ContactFromDocument(doc)
		if err != nil {
			wrapped := dErrors.Wrap(err, dErrors.CodeInternal, "stored contact is corrupt")
			recordError(span, wrapped)
			return nil, wrapped
		}
		contacts = append(contacts, c)
	}
	span.SetAttributes(attribute.Int("contact.count", len(contacts)))
	return contacts, nil
}

// Get rehydrates the contact stored under id.
func (g *Gateway) Get(ctx context.Context, id models.RecordID) (*models.Contact, error) {
	ctx, span := g.tracer.Start(ctx, "contact.Get", trace.WithAttributes(attribute.Int64("contact.record_id", int64(id))))
	defer span.End()

	doc, err := g.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "contact not found")
		}
		wrapped := dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contact")
		recordError(span, wrapped)
		return nil, wrapped
	}
	c, err := models.ContactFromDocument(*doc)
	if err != nil {
		wrapped := dErrors.Wrap(err, dErrors.CodeInternal, "stored contact is corrupt")
		recordError(span, wrapped)
		return nil, wrapped
	}
	return c, nil
}

// Modify replaces the phone number and address of the contact stored under
// id. The names are kept, so the save lands on the same document. Invalid
// input is rejected before anything is written.
func (g *Gateway) Modify(ctx context.Context, id models.RecordID, phoneNumber, address string) (*models.Contact, error) {
	target, err := g.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := models.NewContact(target.FirstName, target.LastName, phoneNumber, address)
	if err != nil {
		g.recordValidationFailure(err)
		return nil, err
	}
	if _, err := g.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Create validates raw input and saves the resulting contact.
func (g *Gateway) Create(ctx context.Context, firstName, lastName, phoneNumber, address string) (*models.Contact, error) {
	c, err := models.NewContact(firstName, lastName, phoneNumber, address)
	if err != nil {
		g.recordValidationFailure(err)
		return nil, err
	}
	if _, err := g.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (g *Gateway) recordValidationFailure(err error) {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		g.metrics.IncrementValidationFailure(vErr.Field)
	}
}

func (g *Gateway) lockWrites() {
	if g.writeMu != nil {
		g.writeMu.Lock()
	}
}

func (g *Gateway) unlockWrites() {
	if g.writeMu != nil {
		g.writeMu.Unlock()
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
