package octopus

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies which condition an Error represents.
type Kind int

const (
	// KindAssertionFailed means an input or response violated a precondition.
	KindAssertionFailed Kind = iota + 1
	// KindRequestFailure covers transport failures and unclassified responses.
	KindRequestFailure
	// KindUnauthorisedRequest means the credential may not access the resource.
	KindUnauthorisedRequest
	// KindInvalidAPIKey means the API rejected the credential itself.
	KindInvalidAPIKey
	// KindMailingListNotFound means the addressed list does not exist.
	KindMailingListNotFound
	// KindMemberNotFound means the addressed contact does not exist on the list.
	KindMemberNotFound
	// KindMemberAlreadySubscribed means the contact is already on the list.
	KindMemberAlreadySubscribed
)

// String returns the name of the condition
func (k Kind) String() string {
	switch k {
	case KindAssertionFailed:
		return "AssertionFailed"
	case KindRequestFailure:
		return "RequestFailure"
	case KindUnauthorisedRequest:
		return "UnauthorisedRequest"
	case KindInvalidAPIKey:
		return "InvalidApiKey"
	case KindMailingListNotFound:
		return "MailingListNotFound"
	case KindMemberNotFound:
		return "MemberNotFound"
	case KindMemberAlreadySubscribed:
		return "MemberAlreadySubscribed"
	default:
		return "Unknown"
	}
}

// Sentinels for use with errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrAssertionFailed         = errors.New("assertion failed")
	ErrRequestFailure          = errors.New("request failure")
	ErrUnauthorisedRequest     = errors.New("unauthorised request")
	ErrInvalidAPIKey           = errors.New("invalid api key")
	ErrMailingListNotFound     = errors.New("mailing list not found")
	ErrMemberNotFound          = errors.New("member not found")
	ErrMemberAlreadySubscribed = errors.New("member already subscribed")
)

var kindSentinels = map[Kind]error{
	KindAssertionFailed:         ErrAssertionFailed,
	KindRequestFailure:          ErrRequestFailure,
	KindUnauthorisedRequest:     ErrUnauthorisedRequest,
	KindInvalidAPIKey:           ErrInvalidAPIKey,
	KindMailingListNotFound:     ErrMailingListNotFound,
	KindMemberNotFound:          ErrMemberNotFound,
	KindMemberAlreadySubscribed: ErrMemberAlreadySubscribed,
}

// Response is a snapshot of an HTTP response taken before its body was closed.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Error is the single error type returned by the client.
//
// Errors produced from an HTTP exchange carry the originating request and
// the response snapshot. Transport failures carry only the underlying cause,
// and assertion failures raised before sending carry neither.
type Error struct {
	Kind    Kind
	Message string

	request  *Request
	response *Response
	err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("octopus: %s: %s", e.Kind, e.Message)
	if e.response != nil {
		msg = fmt.Sprintf("%s (status %d)", msg, e.response.StatusCode)
	}
	if e.err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.err)
	}
	return msg
}

// Unwrap returns the transport error behind a RequestFailure, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is the sentinel for this error's Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Request returns the request that triggered the error.
func (e *Error) Request() (*Request, bool) {
	return e.request, e.request != nil
}

// Response returns the response that triggered the error.
func (e *Error) Response() (*Response, bool) {
	return e.response, e.response != nil
}

func assertionFailed(format string, args ...any) *Error {
	return &Error{Kind: KindAssertionFailed, Message: fmt.Sprintf(format, args...)}
}

func transportFailure(req *Request, cause error) *Error {
	return &Error{
		Kind:    KindRequestFailure,
		Message: fmt.Sprintf("%s %s could not be completed", req.Method, req.Path),
		err:     cause,
	}
}

func exchangeError(kind Kind, message string, req *Request, resp *Response) *Error {
	return &Error{Kind: kind, Message: message, request: req, response: resp}
}

// withExchange attaches the HTTP exchange to an assertion raised while
// decoding a response.
func (e *Error) withExchange(req *Request, resp *Response) *Error {
	e.request = req
	e.response = resp
	return e
}

func isKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}

// IsAssertionFailed checks if the error is an AssertionFailed condition.
func IsAssertionFailed(err error) bool {
	return isKind(err, KindAssertionFailed)
}

// IsRequestFailure checks if the error is a RequestFailure condition.
func IsRequestFailure(err error) bool {
	return isKind(err, KindRequestFailure)
}

// IsUnauthorisedRequest checks if the error is an UnauthorisedRequest condition.
func IsUnauthorisedRequest(err error) bool {
	return isKind(err, KindUnauthorisedRequest)
}

// IsInvalidAPIKey checks if the error is an InvalidApiKey condition.
func IsInvalidAPIKey(err error) bool {
	return isKind(err, KindInvalidAPIKey)
}

// IsMailingListNotFound checks if the error is a MailingListNotFound condition.
func IsMailingListNotFound(err error) bool {
	return isKind(err, KindMailingListNotFound)
}

// IsMemberNotFound checks if the error is a MemberNotFound condition.
func IsMemberNotFound(err error) bool {
	return isKind(err, KindMemberNotFound)
}

// IsMemberAlreadySubscribed checks if the error is a MemberAlreadySubscribed condition.
func IsMemberAlreadySubscribed(err error) bool {
	return isKind(err, KindMemberAlreadySubscribed)
}
