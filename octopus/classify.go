package octopus

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes found in the "error" object of a failed response.
const (
	codeAPIKeyInvalid  = "API_KEY_INVALID"
	codeUnauthorised   = "UNAUTHORISED"
	codeNotFound       = "NOT_FOUND"
	codeMemberNotFound = "MEMBER_NOT_FOUND"
	codeMemberExists   = "MEMBER_EXISTS_WITH_EMAIL_ADDRESS"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseErrorBody extracts the error code and message. A body that is not a
// JSON error envelope yields empty strings.
func parseErrorBody(body []byte) (code, message string) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", ""
	}
	return eb.Error.Code, eb.Error.Message
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// classify maps a completed exchange to nil (success) or exactly one typed
// condition. Call-site suppressions are not applied here.
func classify(req *Request, resp *Response) *Error {
	if isSuccess(resp.StatusCode) {
		return nil
	}

	code, message := parseErrorBody(resp.Body)
	describe := func(fallback string) string {
		if message != "" {
			return message
		}
		return fallback
	}

	switch {
	case code == codeAPIKeyInvalid:
		return exchangeError(KindInvalidAPIKey, describe("the api key is invalid"), req, resp)

	case code == codeMemberNotFound:
		return exchangeError(KindMemberNotFound, describe("the contact does not exist on this list"), req, resp)

	case code == codeMemberExists && resp.StatusCode >= 400 && resp.StatusCode < 500:
		return exchangeError(KindMemberAlreadySubscribed, describe("the contact is already a member of this list"), req, resp)

	case resp.StatusCode == http.StatusNotFound && code == codeNotFound && req.scope != scopeCollection:
		return exchangeError(KindMailingListNotFound, describe("the list does not exist"), req, resp)

	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden, code == codeUnauthorised:
		return exchangeError(KindUnauthorisedRequest, describe("the request was not authorised"), req, resp)

	// The API answers with a bare 404 for lists owned by another account, so
	// without an explicit code this cannot be told apart from a permissions
	// problem.
	case resp.StatusCode == http.StatusNotFound && code == "" && req.scope == scopeList:
		return exchangeError(KindUnauthorisedRequest, "the list was not found or is not accessible with this api key", req, resp)
	}

	return exchangeError(KindRequestFailure, unclassifiedMessage(req, resp, code, message), req, resp)
}

func unclassifiedMessage(req *Request, resp *Response, code, message string) string {
	msg := fmt.Sprintf("%s %s returned %d", req.Method, req.Path, resp.StatusCode)
	if code != "" {
		msg += " " + code
	}
	if message != "" {
		msg += ": " + message
	}
	return msg
}
