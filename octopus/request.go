package octopus

import (
	"net/http"
	"net/url"
	"strings"
)

// scope records what kind of resource a request addresses. The classifier
// uses it to interpret 404 responses.
type scope int

const (
	scopeCollection scope = iota
	scopeList
	scopeContact
)

// Request describes a single API call before it is sent.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body holds only the fields the caller supplied. Nil for bodiless calls.
	Body map[string]any

	scope scope
}

// URL renders the request against base.
func (r *Request) URL(base string) string {
	u := strings.TrimRight(base, "/") + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	return u
}

// requestBuilder produces fully formed requests from validated arguments.
type requestBuilder struct {
	apiKey string
}

func (b requestBuilder) build(method, path string, sc scope, body map[string]any) (*Request, error) {
	if b.apiKey == "" {
		return nil, assertionFailed("api key cannot be empty")
	}
	return &Request{
		Method: method,
		Path:   path,
		Query:  url.Values{"api_key": {b.apiKey}},
		Body:   body,
		scope:  sc,
	}, nil
}

func listPath(list ListID) (string, error) {
	if list.IsZero() {
		return "", assertionFailed("list id cannot be empty")
	}
	return "/lists/" + url.PathEscape(list.String()), nil
}

func contactPath(list ListID, email EmailAddress) (string, error) {
	base, err := listPath(list)
	if err != nil {
		return "", err
	}
	if email.IsZero() {
		return "", assertionFailed("email address cannot be empty")
	}
	return base + "/contacts/" + email.Hash(), nil
}

func (b requestBuilder) findContact(list ListID, email EmailAddress) (*Request, error) {
	path, err := contactPath(list, email)
	if err != nil {
		return nil, err
	}
	return b.build(http.MethodGet, path, scopeContact, nil)
}

func (b requestBuilder) addContact(list ListID, email EmailAddress, in contactInput) (*Request, error) {
	base, err := listPath(list)
	if err != nil {
		return nil, err
	}
	if email.IsZero() {
		return nil, assertionFailed("email address cannot be empty")
	}

	body := map[string]any{"email_address": email.String()}
	if in.status != nil {
		if !in.status.Valid() {
			return nil, assertionFailed("%q is not a valid subscription status", string(*in.status))
		}
		body["status"] = in.status.String()
	}
	if len(in.fields) > 0 {
		body["fields"] = in.fields
	}
	return b.build(http.MethodPost, base+"/contacts", scopeContact, body)
}

func (b requestBuilder) updateContactStatus(list ListID, email EmailAddress, status SubscriptionStatus) (*Request, error) {
	path, err := contactPath(list, email)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, assertionFailed("%q is not a valid subscription status", string(status))
	}
	return b.build(http.MethodPut, path, scopeContact, map[string]any{"status": status.String()})
}

func (b requestBuilder) deleteContact(list ListID, email EmailAddress) (*Request, error) {
	path, err := contactPath(list, email)
	if err != nil {
		return nil, err
	}
	return b.build(http.MethodDelete, path, scopeContact, nil)
}

func (b requestBuilder) findList(list ListID) (*Request, error) {
	path, err := listPath(list)
	if err != nil {
		return nil, err
	}
	return b.build(http.MethodGet, path, scopeList, nil)
}

func (b requestBuilder) createList(name string) (*Request, error) {
	if strings.TrimSpace(name) == "" {
		return nil, assertionFailed("list name cannot be empty")
	}
	return b.build(http.MethodPost, "/lists", scopeCollection, map[string]any{"name": name})
}

func (b requestBuilder) deleteList(list ListID) (*Request, error) {
	path, err := listPath(list)
	if err != nil {
		return nil, err
	}
	return b.build(http.MethodDelete, path, scopeList, nil)
}
