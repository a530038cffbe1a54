package octopus

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"
)

// ListID identifies a mailing list.
type ListID struct {
	raw string
}

// ParseListID returns raw as a ListID. Empty identifiers are rejected.
func ParseListID(raw string) (ListID, error) {
	if strings.TrimSpace(raw) == "" {
		return ListID{}, assertionFailed("list id cannot be empty")
	}
	return ListID{raw: raw}, nil
}

// MustParseListID is like ParseListID but panics on invalid input.
func MustParseListID(raw string) ListID {
	id, err := ParseListID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (l ListID) String() string {
	return l.raw
}

// IsZero reports whether l was never parsed.
func (l ListID) IsZero() bool {
	return l.raw == ""
}

// SubscriptionStatus is the persisted consent state of a contact.
type SubscriptionStatus string

const (
	StatusSubscribed   SubscriptionStatus = "SUBSCRIBED"
	StatusUnsubscribed SubscriptionStatus = "UNSUBSCRIBED"
	StatusPending      SubscriptionStatus = "PENDING"
	StatusCleaned      SubscriptionStatus = "CLEANED"
)

// SubscriptionStatuses lists every status the API knows about.
var SubscriptionStatuses = []SubscriptionStatus{
	StatusSubscribed,
	StatusUnsubscribed,
	StatusPending,
	StatusCleaned,
}

// ParseSubscriptionStatus validates code against the known statuses.
// Matching is case-insensitive; the result is always the canonical code.
func ParseSubscriptionStatus(code string) (SubscriptionStatus, error) {
	s := SubscriptionStatus(strings.ToUpper(strings.TrimSpace(code)))
	if !s.Valid() {
		return "", assertionFailed("%q is not a valid subscription status", code)
	}
	return s, nil
}

// Valid reports whether s is one of the known statuses.
func (s SubscriptionStatus) Valid() bool {
	return slices.Contains(SubscriptionStatuses, s)
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// SubscriptionResult is the outcome of a subscribe attempt. It is separate
// from SubscriptionStatus: a duplicate subscription is a result, not a state.
type SubscriptionResult int

const (
	// SubscriptionSubscribed means the contact was added and is subscribed.
	SubscriptionSubscribed SubscriptionResult = iota + 1
	// SubscriptionPending means the contact was added and awaits confirmation.
	SubscriptionPending
	// SubscriptionAlreadySubscribed means the contact was already on the list.
	SubscriptionAlreadySubscribed
)

// IsSuccess reports whether the attempt added the contact to the list.
func (r SubscriptionResult) IsSuccess() bool {
	return r == SubscriptionSubscribed || r == SubscriptionPending
}

func (r SubscriptionResult) String() string {
	switch r {
	case SubscriptionSubscribed:
		return "subscribed"
	case SubscriptionPending:
		return "pending"
	case SubscriptionAlreadySubscribed:
		return "already-subscribed"
	default:
		return "unknown"
	}
}

// ContactFields holds the custom field values of a contact. Values are
// string, int64 or nil.
type ContactFields struct {
	values map[string]any
}

func contactFieldsFromRecord(r record) (ContactFields, error) {
	values := make(map[string]any, len(r))
	for key, v := range r {
		switch t := v.(type) {
		case nil, string:
			values[key] = t
		case json.Number:
			i, err := t.Int64()
			if err != nil {
				return ContactFields{}, assertionFailed("contact field %q: expected string, integer or null, received %s", key, shapeOf(t))
			}
			values[key] = i
		default:
			return ContactFields{}, assertionFailed("contact field %q: expected string, integer or null, received %s", key, shapeOf(v))
		}
	}
	return ContactFields{values: values}, nil
}

// Get returns the value of a field and whether it was present.
func (f ContactFields) Get(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Keys returns the field names in sorted order.
func (f ContactFields) Keys() []string {
	return slices.Sorted(maps.Keys(f.values))
}

// Len returns the number of fields.
func (f ContactFields) Len() int {
	return len(f.values)
}

// Map returns a copy of the fields.
func (f ContactFields) Map() map[string]any {
	return maps.Clone(f.values)
}

// Contact is a subscriber record on a mailing list. The list itself is not
// part of the value; it is supplied alongside the contact in each call.
type Contact struct {
	id        string
	email     EmailAddress
	status    SubscriptionStatus
	createdAt time.Time
	fields    ContactFields
}

func contactFromRecord(r record) (*Contact, error) {
	id, err := r.requireString("id", "contact id")
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, assertionFailed("contact id cannot be empty")
	}

	rawEmail, err := r.requireString("email_address", "contact email address")
	if err != nil {
		return nil, err
	}
	email, err := ParseEmailAddress(rawEmail)
	if err != nil {
		return nil, err
	}

	rawStatus, err := r.requireString("status", "contact status")
	if err != nil {
		return nil, err
	}
	status, err := ParseSubscriptionStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	createdAt, err := r.requireTime("created_at", "contact created_at")
	if err != nil {
		return nil, err
	}

	rawFields, err := r.requireObject("fields", "contact fields")
	if err != nil {
		return nil, err
	}
	fields, err := contactFieldsFromRecord(rawFields)
	if err != nil {
		return nil, err
	}

	return &Contact{
		id:        id,
		email:     email,
		status:    status,
		createdAt: createdAt,
		fields:    fields,
	}, nil
}

// NewContact assembles a contact outside of an API response, applying the
// same rules as a decoded record. Integer field values are stored as int64.
func NewContact(id string, email EmailAddress, status SubscriptionStatus, createdAt time.Time, fields map[string]any) (*Contact, error) {
	if id == "" {
		return nil, assertionFailed("contact id cannot be empty")
	}
	if email.IsZero() {
		return nil, assertionFailed("email address cannot be empty")
	}
	if !status.Valid() {
		return nil, assertionFailed("%q is not a valid subscription status", string(status))
	}

	values := make(map[string]any, len(fields))
	for key, v := range fields {
		switch t := v.(type) {
		case nil, string, int64:
			values[key] = t
		case int:
			values[key] = int64(t)
		case int32:
			values[key] = int64(t)
		default:
			return nil, assertionFailed("contact field %q: expected string, integer or null, received %T", key, v)
		}
	}

	return &Contact{
		id:        id,
		email:     email,
		status:    status,
		createdAt: createdAt,
		fields:    ContactFields{values: values},
	}, nil
}

func (c *Contact) ID() string { return c.id }
func (c *Contact) EmailAddress() EmailAddress { return c.email }
func (c *Contact) Status() SubscriptionStatus { return c.status }
func (c *Contact) CreatedAt() time.Time { return c.createdAt }
func (c *Contact) Fields() ContactFields { return c.fields }
func (c *Contact) IsStatus(s SubscriptionStatus) bool { return c.status == s }

// ListField describes a custom field defined on a mailing list.
type ListField struct {
	Tag      string
	Type     string
	Label    string
	Fallback string
}

// ListCounts holds the contact totals reported for a list.
type ListCounts struct {
	Pending      int64
	Subscribed   int64
	Unsubscribed int64
}

// MailingList is a named collection of contacts.
type MailingList struct {
	id          ListID
	name        string
	doubleOptIn bool
	fields      []ListField
	counts      ListCounts
	createdAt   time.Time
}

func mailingListFromRecord(r record) (*MailingList, error) {
	rawID, err := r.requireString("id", "list id")
	if err != nil {
		return nil, err
	}
	id, err := ParseListID(rawID)
	if err != nil {
		return nil, err
	}

	name, err := r.requireString("name", "list name")
	if err != nil {
		return nil, err
	}

	doubleOptIn, err := r.optionalBool("double_opt_in", "list double_opt_in")
	if err != nil {
		return nil, err
	}

	list := &MailingList{id: id, name: name, doubleOptIn: doubleOptIn}

	if raw, ok := r["created_at"]; ok && raw != nil {
		if list.createdAt, err = r.requireTime("created_at", "list created_at"); err != nil {
			return nil, err
		}
	}

	if raw, ok := r["counts"]; ok && raw != nil {
		counts, err := r.requireObject("counts", "list counts")
		if err != nil {
			return nil, err
		}
		if list.counts.Pending, err = counts.optionalInt("pending", "list counts.pending"); err != nil {
			return nil, err
		}
		if list.counts.Subscribed, err = counts.optionalInt("subscribed", "list counts.subscribed"); err != nil {
			return nil, err
		}
		if list.counts.Unsubscribed, err = counts.optionalInt("unsubscribed", "list counts.unsubscribed"); err != nil {
			return nil, err
		}
	}

	if raw, ok := r["fields"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return nil, assertionFailed("list fields: expected array, received %s", shapeOf(raw))
		}
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, assertionFailed("list fields[%d]: expected object, received %s", i, shapeOf(item))
			}
			field, err := listFieldFromRecord(record(obj))
			if err != nil {
				return nil, err
			}
			list.fields = append(list.fields, field)
		}
	}

	return list, nil
}

func listFieldFromRecord(r record) (ListField, error) {
	tag, err := r.requireString("tag", "list field tag")
	if err != nil {
		return ListField{}, err
	}
	f := ListField{Tag: tag}
	if f.Type, err = r.optionalString("type", "list field type"); err != nil {
		return ListField{}, err
	}
	if f.Label, err = r.optionalString("label", "list field label"); err != nil {
		return ListField{}, err
	}
	if f.Fallback, err = r.optionalString("fallback", "list field fallback"); err != nil {
		return ListField{}, err
	}
	return f, nil
}

func (l *MailingList) ID() ListID { return l.id }
func (l *MailingList) Name() string { return l.name }
func (l *MailingList) DoubleOptIn() bool { return l.doubleOptIn }
func (l *MailingList) Counts() ListCounts { return l.counts }
func (l *MailingList) CreatedAt() time.Time { return l.createdAt }

// Fields returns a copy of the custom field definitions.
func (l *MailingList) Fields() []ListField {
	return slices.Clone(l.fields)
}
