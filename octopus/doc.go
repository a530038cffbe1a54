// Package octopus provides a typed client for the EmailOctopus mailing-list API.
//
// The client covers list management, contact management and subscription
// status changes. Every response is classified into either a validated value
// (Contact, MailingList, ListID, SubscriptionResult) or exactly one *Error.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := octopus.NewClient("your-api-key", logger,
//		octopus.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	email, _ := octopus.ParseEmailAddress("someone@example.com")
//	list, _ := octopus.ParseListID("00000000-0000-0000-0000-000000000000")
//
//	result, err := client.Subscribe(ctx, email, list)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if !result.IsSuccess() {
//		// already on the list
//	}
//
// # Error Handling
//
// All failures are returned as *Error with one of a fixed set of kinds:
//
//   - AssertionFailed: an argument or response broke the expected shape
//   - RequestFailure: the transport failed, or the response was not recognised
//   - UnauthorisedRequest, InvalidApiKey: credential problems
//   - MailingListNotFound, MemberNotFound, MemberAlreadySubscribed
//
// Use errors.Is with the package sentinels, or the Is* helpers:
//
//	if errors.Is(err, octopus.ErrMemberNotFound) {
//		// no such contact
//	}
//
// Errors raised from a completed exchange expose the request and response
// through Request and Response. Transport failures wrap the transport error,
// retrievable with errors.Unwrap.
//
// A few operations deliberately absorb one condition: IsSubscribed turns
// MemberNotFound into false, Subscribe turns MemberAlreadySubscribed into
// SubscriptionAlreadySubscribed, and Unsubscribe treats MemberNotFound as
// success. No other operation hides any condition.
package octopus
