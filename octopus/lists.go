package octopus

import "context"

// FindMailingListByID retrieves a list.
//
// API: GET /lists/{list}
//
// Errors:
//   - MailingListNotFound: the server says the list does not exist.
//   - UnauthorisedRequest: the list is not accessible, which the API also
//     reports for lists that do not exist.
func (c *Client) FindMailingListByID(ctx context.Context, list ListID) (*MailingList, error) {
	req, err := c.requests.findList(list)
	if err != nil {
		return nil, err
	}
	rec, resp, err := c.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	ml, err := mailingListFromRecord(rec)
	if err != nil {
		return nil, asExchangeError(err, req, resp)
	}
	return ml, nil
}

// CreateMailingList creates a list called name and returns its identifier.
//
// API: POST /lists
//
// Idempotency: Not idempotent
func (c *Client) CreateMailingList(ctx context.Context, name string) (ListID, error) {
	req, err := c.requests.createList(name)
	if err != nil {
		return ListID{}, err
	}
	rec, resp, err := c.fetch(ctx, req)
	if err != nil {
		return ListID{}, err
	}

	raw, err := rec.requireString("id", "list id")
	if err != nil {
		return ListID{}, asExchangeError(err, req, resp)
	}
	id, err := ParseListID(raw)
	if err != nil {
		return ListID{}, asExchangeError(err, req, resp)
	}

	c.logger.Info().Str("list", id.String()).Str("name", name).Msg("Created mailing list")
	return id, nil
}

// DeleteMailingList deletes a list and every contact on it.
//
// API: DELETE /lists/{list}
func (c *Client) DeleteMailingList(ctx context.Context, list ListID) error {
	req, err := c.requests.deleteList(list)
	if err != nil {
		return err
	}
	if _, err := c.execute(ctx, req); err != nil {
		return err
	}

	c.logger.Info().Str("list", list.String()).Msg("Deleted mailing list")
	return nil
}
