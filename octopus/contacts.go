package octopus

import (
	"context"
	"strings"
)

type contactInput struct {
	status *SubscriptionStatus
	fields map[string]any
}

// ContactOption sets an optional attribute of a contact being added.
// Attributes that are not set are left out of the request entirely.
type ContactOption func(*contactInput)

// WithStatus sets the initial subscription status of the contact.
func WithStatus(status SubscriptionStatus) ContactOption {
	return func(in *contactInput) {
		in.status = &status
	}
}

// WithFields sets custom field values. Values must be strings, integers or nil.
func WithFields(fields map[string]any) ContactOption {
	return func(in *contactInput) {
		if in.fields == nil {
			in.fields = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			in.fields[k] = v
		}
	}
}

func newContactInput(opts []ContactOption) (contactInput, error) {
	var in contactInput
	for _, opt := range opts {
		opt(&in)
	}
	for key, v := range in.fields {
		if strings.TrimSpace(key) == "" {
			return in, assertionFailed("contact field names cannot be empty")
		}
		switch v.(type) {
		case nil, string, int, int32, int64:
		default:
			return in, assertionFailed("contact field %q: expected string, integer or null, received %T", key, v)
		}
	}
	return in, nil
}

// IsSubscribed reports whether email is subscribed to list. Pending contacts
// count as subscribed; an address with no contact record does not.
func (c *Client) IsSubscribed(ctx context.Context, email EmailAddress, list ListID) (bool, error) {
	contact, err := c.FindListContactByEmailAddress(ctx, email, list)
	if err != nil {
		if IsMemberNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return contact.IsStatus(StatusSubscribed) || contact.IsStatus(StatusPending), nil
}

// FindListContactByEmailAddress retrieves the contact for email on list.
//
// API: GET /lists/{list}/contacts/{md5(email)}
//
// Errors:
//   - MemberNotFound: no contact exists for the address.
//   - MailingListNotFound, UnauthorisedRequest: the list cannot be reached.
func (c *Client) FindListContactByEmailAddress(ctx context.Context, email EmailAddress, list ListID) (*Contact, error) {
	req, err := c.requests.findContact(list, email)
	if err != nil {
		return nil, err
	}
	return c.fetchContact(ctx, req)
}

// AddContactToList creates a new contact on list.
//
// API: POST /lists/{list}/contacts
//
// Idempotency: Not idempotent
//
// Errors:
//   - MemberAlreadySubscribed: the address is already on the list.
func (c *Client) AddContactToList(ctx context.Context, email EmailAddress, list ListID, opts ...ContactOption) (*Contact, error) {
	in, err := newContactInput(opts)
	if err != nil {
		return nil, err
	}
	contact, _, _, err := c.addContact(ctx, email, list, in)
	return contact, err
}

func (c *Client) addContact(ctx context.Context, email EmailAddress, list ListID, in contactInput) (*Contact, *Request, *Response, error) {
	req, err := c.requests.addContact(list, email, in)
	if err != nil {
		return nil, nil, nil, err
	}
	contact, resp, err := c.exchangeContact(ctx, req)
	return contact, req, resp, err
}

// Subscribe adds email to list, reporting a duplicate as a result rather
// than an error. Only SUBSCRIBED and PENDING may be requested as the
// initial status.
//
// Idempotency: Idempotent
func (c *Client) Subscribe(ctx context.Context, email EmailAddress, list ListID, opts ...ContactOption) (SubscriptionResult, error) {
	in, err := newContactInput(opts)
	if err != nil {
		return 0, err
	}
	if in.status != nil && *in.status != StatusSubscribed && *in.status != StatusPending {
		return 0, assertionFailed("subscribe cannot create a contact with status %s", *in.status)
	}

	contact, req, resp, err := c.addContact(ctx, email, list, in)
	if err != nil {
		if IsMemberAlreadySubscribed(err) {
			c.logger.Debug().Str("list", list.String()).Msg("Contact already subscribed")
			return SubscriptionAlreadySubscribed, nil
		}
		return 0, err
	}

	switch contact.Status() {
	case StatusSubscribed:
		return SubscriptionSubscribed, nil
	case StatusPending:
		return SubscriptionPending, nil
	default:
		return 0, asExchangeError(assertionFailed("subscribe created a contact with status %s", contact.Status()), req, resp)
	}
}

// ChangeSubscriptionStatus sets the status of an existing contact and
// returns the contact as stored by the server.
//
// API: PUT /lists/{list}/contacts/{md5(email)}
//
// Errors:
//   - MemberNotFound: no contact exists for the address.
func (c *Client) ChangeSubscriptionStatus(ctx context.Context, email EmailAddress, list ListID, status SubscriptionStatus) (*Contact, error) {
	req, err := c.requests.updateContactStatus(list, email, status)
	if err != nil {
		return nil, err
	}
	return c.fetchContact(ctx, req)
}

// Unsubscribe marks email as unsubscribed from list. An address that has no
// contact on the list is already unsubscribed, so that case succeeds.
//
// Idempotency: Idempotent
func (c *Client) Unsubscribe(ctx context.Context, email EmailAddress, list ListID) error {
	_, err := c.ChangeSubscriptionStatus(ctx, email, list, StatusUnsubscribed)
	if IsMemberNotFound(err) {
		c.logger.Debug().Str("list", list.String()).Msg("Contact not on list, nothing to unsubscribe")
		return nil
	}
	return err
}

// DeleteListContact removes the contact for email from list.
//
// API: DELETE /lists/{list}/contacts/{md5(email)}
func (c *Client) DeleteListContact(ctx context.Context, email EmailAddress, list ListID) error {
	req, err := c.requests.deleteContact(list, email)
	if err != nil {
		return err
	}
	_, err = c.execute(ctx, req)
	return err
}

func (c *Client) fetchContact(ctx context.Context, req *Request) (*Contact, error) {
	contact, _, err := c.exchangeContact(ctx, req)
	return contact, err
}

func (c *Client) exchangeContact(ctx context.Context, req *Request) (*Contact, *Response, error) {
	rec, resp, err := c.fetch(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	contact, err := contactFromRecord(rec)
	if err != nil {
		return nil, resp, asExchangeError(err, req, resp)
	}
	return contact, resp, nil
}
