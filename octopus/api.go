package octopus

import "context"

// API defines the operations offered by the client
type API interface {
	// IsSubscribed reports whether the address is subscribed or pending on the list
	IsSubscribed(ctx context.Context, email EmailAddress, list ListID) (bool, error)

	// FindListContactByEmailAddress retrieves a contact by address
	FindListContactByEmailAddress(ctx context.Context, email EmailAddress, list ListID) (*Contact, error)

	// AddContactToList creates a contact, failing if it already exists
	AddContactToList(ctx context.Context, email EmailAddress, list ListID, opts ...ContactOption) (*Contact, error)

	// Subscribe adds a contact, treating duplicates as a result
	Subscribe(ctx context.Context, email EmailAddress, list ListID, opts ...ContactOption) (SubscriptionResult, error)

	// ChangeSubscriptionStatus updates the status of an existing contact
	ChangeSubscriptionStatus(ctx context.Context, email EmailAddress, list ListID, status SubscriptionStatus) (*Contact, error)

	// Unsubscribe marks a contact as unsubscribed, succeeding if it is absent
	Unsubscribe(ctx context.Context, email EmailAddress, list ListID) error

	// DeleteListContact removes a contact from a list
	DeleteListContact(ctx context.Context, email EmailAddress, list ListID) error

	// FindMailingListByID retrieves a list
	FindMailingListByID(ctx context.Context, list ListID) (*MailingList, error)

	// CreateMailingList creates a list and returns its id
	CreateMailingList(ctx context.Context, name string) (ListID, error)

	// DeleteMailingList deletes a list
	DeleteMailingList(ctx context.Context, list ListID) error
}

var _ API = (*Client)(nil)
