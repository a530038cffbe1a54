package octopus

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	validAPIKey = "valid-api-key"
	validList   = "valid-list-id"

	emailNotSubscribed  = "not-subscribed@example.com"
	emailIsSubscribed   = "subscribed@example.com"
	emailIsPending      = "pending@example.com"
	emailIsUnsubscribed = "unsubscribed@example.com"
	emailInvalidAPIKey  = "invalid-key@example.com"

	emailWillSubscribe        = "will-subscribe@example.com"
	emailWillSubscribePending = "will-be-pending@example.com"
	emailExistingContact      = "existing@example.com"
	emailComesBackCleaned     = "comes-back-cleaned@example.com"

	listUnauthorised = "unauthorised-list-id"
	listNotFound     = "list-not-found-id"

	listNameSuccess   = "Successful List"
	listNameNumericID = "Numeric ID List"
	listNameMissingID = "Missing ID List"
)

// capturedRequest is what the mock server saw for a single call.
type capturedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// mockServer imitates the API closely enough to drive every client operation.
type mockServer struct {
	*httptest.Server

	mu   sync.Mutex
	last *capturedRequest
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()

	m := &mockServer{}
	mux := http.NewServeMux()

	contacts := map[string]string{
		hashOf(emailIsSubscribed):   emailIsSubscribed,
		hashOf(emailIsPending):      emailIsPending,
		hashOf(emailIsUnsubscribed): emailIsUnsubscribed,
	}
	statuses := map[string]string{
		emailIsSubscribed:   "SUBSCRIBED",
		emailIsPending:      "PENDING",
		emailIsUnsubscribed: "UNSUBSCRIBED",
	}

	mux.HandleFunc("GET /lists/{list}/contacts/{hash}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("hash") == hashOf(emailInvalidAPIKey) {
			writeError(w, http.StatusForbidden, "API_KEY_INVALID", "Your API key is invalid.")
			return
		}
		email, ok := contacts[r.PathValue("hash")]
		if !ok {
			writeError(w, http.StatusNotFound, "MEMBER_NOT_FOUND", "The contact could not be found.")
			return
		}
		writeJSON(w, http.StatusOK, contactJSON(email, statuses[email]))
	})

	mux.HandleFunc("POST /lists/{list}/contacts", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.Unmarshal(m.lastBody(), &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAMETERS", "Invalid JSON")
			return
		}
		switch body["email_address"] {
		case emailExistingContact:
			writeError(w, http.StatusConflict, "MEMBER_EXISTS_WITH_EMAIL_ADDRESS", "A contact already exists with this email address.")
		case emailWillSubscribePending:
			writeJSON(w, http.StatusOK, contactJSON(emailWillSubscribePending, "PENDING"))
		case emailComesBackCleaned:
			writeJSON(w, http.StatusOK, contactJSON(emailComesBackCleaned, "CLEANED"))
		default:
			status := "SUBSCRIBED"
			if s, ok := body["status"].(string); ok {
				status = s
			}
			writeJSON(w, http.StatusOK, contactJSON(body["email_address"].(string), status))
		}
	})

	mux.HandleFunc("PUT /lists/{list}/contacts/{hash}", func(w http.ResponseWriter, r *http.Request) {
		email, ok := contacts[r.PathValue("hash")]
		if !ok {
			writeError(w, http.StatusNotFound, "MEMBER_NOT_FOUND", "The contact could not be found.")
			return
		}
		var body map[string]any
		_ = json.Unmarshal(m.lastBody(), &body)
		writeJSON(w, http.StatusOK, contactJSON(email, body["status"].(string)))
	})

	mux.HandleFunc("DELETE /lists/{list}/contacts/{hash}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "contact-id"})
	})

	mux.HandleFunc("GET /lists/{list}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("list") {
		case listUnauthorised:
			w.WriteHeader(http.StatusNotFound)
		case listNotFound:
			writeError(w, http.StatusNotFound, "NOT_FOUND", "The list could not be found.")
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"id":            r.PathValue("list"),
				"name":          "Newsletter",
				"double_opt_in": true,
				"fields": []any{
					map[string]any{"tag": "FirstName", "type": "TEXT", "label": "First name", "fallback": nil},
				},
				"counts":     map[string]any{"pending": 1, "subscribed": 10, "unsubscribed": 2},
				"created_at": "2021-03-04T05:06:07+00:00",
			})
		}
	})

	mux.HandleFunc("POST /lists", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.Unmarshal(m.lastBody(), &body)
		switch body["name"] {
		case listNameNumericID:
			writeJSON(w, http.StatusOK, map[string]any{"id": 123, "name": body["name"]})
		case listNameMissingID:
			writeJSON(w, http.StatusOK, map[string]any{"name": body["name"]})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"id": "new-list-id", "name": body["name"]})
		}
	})

	mux.HandleFunc("DELETE /lists/{list}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": r.PathValue("list")})
	})

	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		m.mu.Lock()
		m.last = &capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		}
		m.mu.Unlock()

		if r.URL.Query().Get("api_key") != validAPIKey {
			writeError(w, http.StatusUnauthorized, "API_KEY_INVALID", "Your API key is invalid.")
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(m.Close)

	return m
}

func (m *mockServer) lastRequest() *capturedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *mockServer) lastBody() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	return m.last.Body
}

func (m *mockServer) client(t *testing.T, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithBaseURL(m.URL)}, opts...)
	c, err := NewClient(validAPIKey, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return c
}

func contactJSON(email, status string) map[string]any {
	return map[string]any{
		"id":            "contact-" + hashOf(email)[:8],
		"email_address": email,
		"fields":        map[string]any{"FirstName": "Ada", "Age": 36, "LastName": nil},
		"status":        status,
		"created_at":    "2020-01-02T03:04:05+00:00",
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"code": code, "message": message}})
}

func hashOf(email string) string {
	return MustParseEmailAddress(email).Hash()
}
