package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactbook/internal/contact/events"
	"contactbook/internal/contact/models"
	"contactbook/internal/contact/service"
	"contactbook/internal/contact/store/memory"
	"contactbook/pkg/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	router    http.Handler
	gateway   *service.Gateway
	publisher *recordingPublisher
	logs      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logs := &bytes.Buffer{}
	gw := service.New(memory.New())
	pub := &recordingPublisher{}
	h := New(gw, pub, slog.New(slog.NewJSONHandler(logs, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return &fixture{router: r, gateway: gw, publisher: pub, logs: logs}
}

func (f *fixture) seed(t *testing.T, first, last, phone, address string) models.RecordID {
	t.Helper()
	c, err := f.gateway.Create(context.Background(), first, last, phone, address)
	require.NoError(t, err)
	return *c.RecordID
}

func TestJSONAPI(t *testing.T) {
	testutil.Given(t, "an empty contact book", func(t *testing.T) {
		f := newFixture(t)

		testutil.When(t, "a contact is posted", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/api/contacts", ContactRequest{
				FirstName: "Jean", LastName: "Dupont", PhoneNumber: "01 23 45 67 89", Address: "Paris",
			})
			rr := testutil.DoRequest(f.router, testutil.WithRequestID(req, "req-42"))

			testutil.Then(t, "it is stored and returned with its id", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				resp := testutil.UnmarshalResponse[ContactResponse](t, rr)
				require.NotNil(t, resp.ID)
				assert.Equal(t, models.RecordID(1), *resp.ID)
				assert.Equal(t, "Jean Dupont", resp.FullName)
			})

			testutil.Then(t, "a saved event carries the request id", func(t *testing.T) {
				require.Len(t, f.publisher.events, 1)
				assert.Equal(t, events.TypeSaved, f.publisher.events[0].Type)
				assert.Equal(t, "req-42", f.publisher.events[0].RequestID)
			})
		})

		testutil.When(t, "the same name is posted again", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/api/contacts", ContactRequest{
				FirstName: "Jean", LastName: "Dupont", PhoneNumber: "0612345678", Address: "Lyon",
			})
			rr := testutil.DoRequest(f.router, req)

			testutil.Then(t, "the existing record is overwritten", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				resp := testutil.UnmarshalResponse[ContactResponse](t, rr)
				assert.Equal(t, models.RecordID(1), *resp.ID)

				list := testutil.UnmarshalResponse[ListResponse](t,
					testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/contacts")))
				require.Len(t, list.Contacts, 1)
				assert.Equal(t, "Lyon", list.Contacts[0].Address)
			})
		})
	})
}

func TestJSONAPI_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name: "invalid name",
			req: testutil.NewJSONRequest(t, http.MethodPost, "/api/contacts", ContactRequest{
				FirstName: "J3an", LastName: "Dupont",
			}),
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name: "invalid phone",
			req: testutil.NewJSONRequest(t, http.MethodPost, "/api/contacts", ContactRequest{
				FirstName: "Jean", LastName: "Dupont", PhoneNumber: "12345",
			}),
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name:       "malformed body",
			req:        testutil.NewRequestWithBody(t, http.MethodPost, "/api/contacts", "{"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "non numeric id",
			req:        testutil.NewRequest(t, http.MethodGet, "/api/contacts/abc"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "unknown id",
			req:        testutil.NewRequest(t, http.MethodGet, "/api/contacts/99"),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "delete unknown id",
			req:        testutil.NewRequest(t, http.MethodDelete, "/api/contacts/99"),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.DoRequest(f.router, tt.req)
			testutil.AssertStatusAndError(t, rr, tt.wantStatus, tt.wantCode)
		})
	}
	assert.Empty(t, f.publisher.events)
}

func TestJSONAPI_ModifyAndDelete(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Marie", "Curie", "", "Varsovie")

	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPut, "/api/contacts/"+id.String(),
		ContactRequest{PhoneNumber: "+33 6 12 34 56 78", Address: "Paris"}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	modified := testutil.UnmarshalResponse[ContactResponse](t, rr)
	assert.Equal(t, "Marie", modified.FirstName)
	assert.Equal(t, "+33 6 12 34 56 78", modified.PhoneNumber)
	assert.Equal(t, id, *modified.ID)

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPut, "/api/contacts/"+id.String(),
		ContactRequest{PhoneNumber: "not a phone"}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodDelete, "/api/contacts/"+id.String()))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, id, testutil.UnmarshalResponse[DeleteResponse](t, rr).Deleted)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/contacts/"+id.String()))
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	assert.Equal(t, []events.Type{events.TypeSaved, events.TypeDeleted}, f.publisher.types())
}

func TestHTML(t *testing.T) {
	testutil.Given(t, "a book with one contact", func(t *testing.T) {
		f := newFixture(t)
		id := f.seed(t, "Jean", "Dupont", "0123456789", "Paris")

		testutil.When(t, "the index is requested", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/"))

			testutil.Then(t, "the contact is listed", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
				assert.Contains(t, rr.Body.String(), "Jean Dupont")
				assert.Contains(t, rr.Body.String(), `action="/contacts/`+id.String()+`/delete"`)
			})
		})

		testutil.When(t, "an invalid contact is submitted", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewFormRequest(t, "/contacts", url.Values{
				"first_name": {"Jean"}, "last_name": {"Dupont!"}, "phone_number": {""}, "address": {""},
			}))

			testutil.Then(t, "the page is re-rendered with a notice", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
				assert.Contains(t, rr.Body.String(), `class="notice"`)
				assert.Contains(t, rr.Body.String(), "is not valid")
				assert.Contains(t, rr.Body.String(), "Jean Dupont")
			})
		})

		testutil.When(t, "a valid contact is submitted", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewFormRequest(t, "/contacts", url.Values{
				"first_name": {"Anne-Marie"}, "last_name": {"O'Neil"}, "phone_number": {"06.12.34.56.78"},
			}))

			testutil.Then(t, "the browser is redirected to the listing", func(t *testing.T) {
				testutil.AssertRedirect(t, rr, "/")
				all, err := f.gateway.ListAll(context.Background())
				require.NoError(t, err)
				assert.Len(t, all, 2)
			})
		})

		testutil.When(t, "the contact is modified", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewFormRequest(t, "/contacts/"+id.String(), url.Values{
				"phone_number": {"0987654321"}, "address": {"Nantes"},
			}))

			testutil.Then(t, "the stored record changes in place", func(t *testing.T) {
				testutil.AssertRedirect(t, rr, "/")
				c, err := f.gateway.Get(context.Background(), id)
				require.NoError(t, err)
				assert.Equal(t, "Nantes", c.Address)
			})
		})

		testutil.When(t, "the contact is deleted", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewFormRequest(t, "/contacts/"+id.String()+"/delete", url.Values{}))

			testutil.Then(t, "it is gone", func(t *testing.T) {
				testutil.AssertRedirect(t, rr, "/")
				_, err := f.gateway.Get(context.Background(), id)
				assert.Error(t, err)
			})
		})

		testutil.When(t, "a missing contact is deleted", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewFormRequest(t, "/contacts/"+id.String()+"/delete", url.Values{}))

			testutil.Then(t, "the browser is sent back to the index", func(t *testing.T) {
				testutil.AssertRedirect(t, rr, "/")
			})
		})
	})
}

func TestHTML_EscapesStoredValues(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Jean", "Dupont", "", "<script>alert(1)</script>")

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.NotContains(t, rr.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, rr.Body.String(), "&lt;script&gt;")
}

func TestPublishFailureIsLoggedNotSurfaced(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/contacts", ContactRequest{FirstName: "Jean", LastName: "Dupont"})
	req = testutil.WithRequestTime(req, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	rr := testutil.DoRequest(f.router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), f.publisher.events[0].OccurredAt)
	assert.True(t, strings.Contains(f.logs.String(), "failed to publish contact event"))
}
