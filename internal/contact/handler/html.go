package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"contactbook/internal/contact/events"
	"contactbook/internal/contact/models"
	dErrors "contactbook/pkg/domain-errors"
	"contactbook/pkg/platform/httputil"
	"contactbook/pkg/requestcontext"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type contactView struct {
	ID          string
	FullName    string
	PhoneNumber string
	Address     string
}

type indexPage struct {
	Notice   string
	Form     ContactRequest
	Contacts []contactView
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, http.StatusOK, indexPage{})
}

// handleAddForm saves the posted contact. Invalid input is not fatal: the
// page is rendered again with a notice and the submitted values.
func (h *Handler) handleAddForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := ContactRequest{
		FirstName:   r.PostFormValue("first_name"),
		LastName:    r.PostFormValue("last_name"),
		PhoneNumber: r.PostFormValue("phone_number"),
		Address:     r.PostFormValue("address"),
	}
	c, err := h.contacts.Create(ctx, form.FirstName, form.LastName, form.PhoneNumber, form.Address)
	if err != nil {
		if notice, ok := validationNotice(err); ok {
			h.renderIndex(w, r, http.StatusUnprocessableEntity, indexPage{Notice: notice, Form: form})
			return
		}
		h.logError(ctx, "failed to save contact", err)
		writeHTMLError(w, err)
		return
	}
	h.publish(ctx, events.Saved(c, requestcontext.Now(ctx)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleModifyForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := recordIDParam(r)
	if err != nil {
		writeHTMLError(w, err)
		return
	}
	c, err := h.contacts.Modify(ctx, id, r.PostFormValue("phone_number"), r.PostFormValue("address"))
	if err != nil {
		if notice, ok := validationNotice(err); ok {
			h.renderIndex(w, r, http.StatusUnprocessableEntity, indexPage{Notice: notice})
			return
		}
		h.logError(ctx, "failed to modify contact", err)
		writeHTMLError(w, err)
		return
	}
	h.publish(ctx, events.Saved(c, requestcontext.Now(ctx)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	id, err := recordIDParam(r)
	if err != nil {
		writeHTMLError(w, err)
		return
	}
	// An already deleted contact lands on the index like a successful delete.
	if _, err := h.deleteByID(r.Context(), id); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		writeHTMLError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderIndex(w http.ResponseWriter, r *http.Request, status int, page indexPage) {
	ctx := r.Context()
	contacts, err := h.contacts.ListAll(ctx)
	if err != nil {
		h.logError(ctx, "failed to list contacts", err)
		writeHTMLError(w, err)
		return
	}
	page.Contacts = toViews(contacts)

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		h.logError(ctx, "failed to render index", err)
		writeHTMLError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func toViews(contacts []*models.Contact) []contactView {
	views := make([]contactView, 0, len(contacts))
	for _, c := range contacts {
		v := contactView{FullName: c.FullName(), PhoneNumber: c.PhoneNumber, Address: c.Address}
		if c.RecordID != nil {
			v.ID = c.RecordID.String()
		}
		views = append(views, v)
	}
	return views
}

func validationNotice(err error) (string, bool) {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error(), true
	}
	return "", false
}

// writeHTMLError answers form posts with a plain status page; internal errors
// keep their details out of the response.
func writeHTMLError(w http.ResponseWriter, err error) {
	code, ok := dErrors.CodeOf(err)
	if !ok {
		code = dErrors.CodeInternal
	}
	status := httputil.StatusFor(code)
	msg := http.StatusText(status)
	var de *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &de) {
		msg = de.Message
	}
	http.Error(w, msg, status)
}
