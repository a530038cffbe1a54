package bulk

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/octolist/octopus"
)

const (
	DefaultConcurrency = 5
	MaxConcurrency     = 20
)

// Processor runs client operations for many addresses with bounded concurrency
type Processor struct {
	api         octopus.API
	concurrency int
	logger      zerolog.Logger
}

// NewProcessor creates a processor. Concurrency outside 1..MaxConcurrency
// falls back to the nearest bound.
func NewProcessor(api octopus.API, concurrency int, logger zerolog.Logger) *Processor {
	switch {
	case concurrency <= 0:
		concurrency = DefaultConcurrency
	case concurrency > MaxConcurrency:
		concurrency = MaxConcurrency
	}
	return &Processor{
		api:         api,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "bulk").Logger(),
	}
}

// SubscribeOutcome is the result of subscribing a single address
type SubscribeOutcome struct {
	Email  octopus.EmailAddress
	Result octopus.SubscriptionResult
	Err    error
}

// FindOutcome is the result of looking up a single address. Contact is nil
// when the address has no contact on the list.
type FindOutcome struct {
	Email   octopus.EmailAddress
	Contact *octopus.Contact
	Err     error
}

// SubscribeResult aggregates a batch subscribe
type SubscribeResult struct {
	Requested         int
	Subscribed        int
	Pending           int
	AlreadySubscribed int
	Outcomes          []SubscribeOutcome
}

// Failed returns the outcomes that ended in an error.
func (r SubscribeResult) Failed() []SubscribeOutcome {
	var failed []SubscribeOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// FindResult aggregates a batch lookup
type FindResult struct {
	Requested int
	Found     int
	Missing   int
	Outcomes  []FindOutcome
}

// Contacts returns every contact that was found, in input order.
func (r FindResult) Contacts() []*octopus.Contact {
	contacts := make([]*octopus.Contact, 0, r.Found)
	for _, o := range r.Outcomes {
		if o.Contact != nil {
			contacts = append(contacts, o.Contact)
		}
	}
	return contacts
}

// Failed returns the outcomes that ended in an error.
func (r FindResult) Failed() []FindOutcome {
	var failed []FindOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Subscribe subscribes every address to list. A failing address is recorded
// in its outcome and does not stop the batch. Outcomes keep input order.
func (p *Processor) Subscribe(ctx context.Context, list octopus.ListID, emails []octopus.EmailAddress, opts ...octopus.ContactOption) (SubscribeResult, error) {
	result := SubscribeResult{
		Requested: len(emails),
		Outcomes:  make([]SubscribeOutcome, len(emails)),
	}
	if len(emails) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	err := p.run(ctx, len(emails), func(ctx context.Context, i int) {
		email := emails[i]
		res, err := p.api.Subscribe(ctx, email, list, opts...)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("email", email.String()).
				Str("list", list.String()).
				Msg("Failed to subscribe contact")
		}

		mu.Lock()
		defer mu.Unlock()
		result.Outcomes[i] = SubscribeOutcome{Email: email, Result: res, Err: err}
		if err != nil {
			return
		}
		switch res {
		case octopus.SubscriptionSubscribed:
			result.Subscribed++
		case octopus.SubscriptionPending:
			result.Pending++
		case octopus.SubscriptionAlreadySubscribed:
			result.AlreadySubscribed++
		}
	})
	if err != nil {
		return result, err
	}

	p.logger.Info().
		Int("requested", result.Requested).
		Int("subscribed", result.Subscribed).
		Int("pending", result.Pending).
		Int("already_subscribed", result.AlreadySubscribed).
		Int("failed", len(result.Failed())).
		Msg("Batch subscribe completed")

	return result, nil
}

// Find looks up every address on list. Addresses without a contact count as
// missing rather than failed.
func (p *Processor) Find(ctx context.Context, list octopus.ListID, emails []octopus.EmailAddress) (FindResult, error) {
	result := FindResult{
		Requested: len(emails),
		Outcomes:  make([]FindOutcome, len(emails)),
	}
	if len(emails) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	err := p.run(ctx, len(emails), func(ctx context.Context, i int) {
		email := emails[i]
		contact, err := p.api.FindListContactByEmailAddress(ctx, email, list)
		missing := octopus.IsMemberNotFound(err)
		if missing {
			err = nil
		} else if err != nil {
			p.logger.Warn().
				Err(err).
				Str("email", email.String()).
				Str("list", list.String()).
				Msg("Failed to find contact")
		}

		mu.Lock()
		defer mu.Unlock()
		result.Outcomes[i] = FindOutcome{Email: email, Contact: contact, Err: err}
		switch {
		case missing:
			result.Missing++
		case err == nil:
			result.Found++
		}
	})
	if err != nil {
		return result, err
	}

	p.logger.Debug().
		Int("requested", result.Requested).
		Int("found", result.Found).
		Int("missing", result.Missing).
		Msg("Batch lookup completed")

	return result, nil
}

// run calls fn for indexes 0..n-1 with at most p.concurrency in flight. It
// stops scheduling once ctx is done and returns the context error.
func (p *Processor) run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	return nil
}
