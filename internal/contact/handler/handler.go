package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"contactbook/internal/contact/events"
	"contactbook/internal/contact/models"
	dErrors "contactbook/pkg/domain-errors"
	"contactbook/pkg/platform/httputil"
	"contactbook/pkg/requestcontext"
)

// Service defines the contact operations the handler needs.
type Service interface {
	ListAll(ctx context.Context) ([]*models.Contact, error)
	Get(ctx context.Context, id models.RecordID) (*models.Contact, error)
	Create(ctx context.Context, firstName, lastName, phoneNumber, address string) (*models.Contact, error)
	Modify(ctx context.Context, id models.RecordID, phoneNumber, address string) (*models.Contact, error)
	Delete(ctx context.Context, c *models.Contact) (*models.RecordID, error)
}

// Handler serves the contact book pages and the JSON API.
type Handler struct {
	logger    *slog.Logger
	contacts  Service
	publisher events.Publisher
}

// New creates a new contact Handler. A nil publisher disables change events.
func New(contacts Service, publisher events.Publisher, logger *slog.Logger) *Handler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Handler{
		logger:    logger,
		contacts:  contacts,
		publisher: publisher,
	}
}

// Register registers the contact routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/contacts", h.handleAddForm)
	r.Post("/contacts/{id}", h.handleModifyForm)
	r.Post("/contacts/{id}/delete", h.handleDeleteForm)

	r.Route("/api/contacts", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleUpsert)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleModify)
		r.Delete("/{id}", h.handleDelete)
	})
}

// ContactRequest is the JSON body accepted by POST and PUT.
type ContactRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

// ContactResponse is the JSON representation of a stored contact.
type ContactResponse struct {
	ID          *models.RecordID `json:"id"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	FullName    string           `json:"full_name"`
	PhoneNumber string           `json:"phone_number"`
	Address     string           `json:"address"`
}

// ListResponse wraps the contact list.
type ListResponse struct {
	Contacts []ContactResponse `json:"contacts"`
}

// DeleteResponse reports the identifier that was removed.
type DeleteResponse struct {
	Deleted models.RecordID `json:"deleted"`
}

func toResponse(c *models.Contact) ContactResponse {
	return ContactResponse{
		ID:          c.RecordID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		FullName:    c.FullName(),
		PhoneNumber: c.PhoneNumber,
		Address:     c.Address,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contacts, err := h.contacts.ListAll(ctx)
	if err != nil {
		h.logError(ctx, "failed to list contacts", err)
		httputil.WriteError(w, err)
		return
	}
	resp := ListResponse{Contacts: make([]ContactResponse, 0, len(contacts))}
	for _, c := range contacts {
		resp.Contacts = append(resp.Contacts, toResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.contacts.Create(ctx, req.FirstName, req.LastName, req.PhoneNumber, req.Address)
	if err != nil {
		h.logError(ctx, "failed to save contact", err)
		httputil.WriteError(w, err)
		return
	}
	h.publish(ctx, events.Saved(c, requestcontext.Now(ctx)))
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := recordIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.contacts.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "failed to load contact", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) handleModify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := recordIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req ContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.contacts.Modify(ctx, id, req.PhoneNumber, req.Address)
	if err != nil {
		h.logError(ctx, "failed to modify contact", err)
		httputil.WriteError(w, err)
		return
	}
	h.publish(ctx, events.Saved(c, requestcontext.Now(ctx)))
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := recordIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	removed, err := h.deleteByID(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DeleteResponse{Deleted: *removed})
}

// deleteByID loads the contact, then deletes by its name pair. A document that
// vanished between the two steps is reported as not found.
func (h *Handler) deleteByID(ctx context.Context, id models.RecordID) (*models.RecordID, error) {
	c, err := h.contacts.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "failed to load contact", err)
		return nil, err
	}
	removed, err := h.contacts.Delete(ctx, c)
	if err != nil {
		h.logError(ctx, "failed to delete contact", err)
		return nil, err
	}
	if removed == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "contact not found")
	}
	h.publish(ctx, events.Deleted(c, *removed, requestcontext.Now(ctx)))
	return removed, nil
}

func (h *Handler) publish(ctx context.Context, event events.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to publish contact event",
			"request_id", event.RequestID,
			"event_type", string(event.Type),
			"record_id", int64(event.RecordID),
			"error", err,
		)
	}
}

// logError logs unexpected failures; client errors are not worth a log line.
func (h *Handler) logError(ctx context.Context, msg string, err error) {
	code, _ := dErrors.CodeOf(err)
	if code == dErrors.CodeValidation || code == dErrors.CodeNotFound || code == dErrors.CodeBadRequest {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

func recordIDParam(r *http.Request) (models.RecordID, error) {
	id, err := models.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid contact id")
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return dErrors.Wrap(err, dErrors.CodeBadRequest, "request body too large")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	return nil
}
