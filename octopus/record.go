package octopus

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"
)

// record is a decoded JSON object as returned by the API. Numbers are kept
// as json.Number so integers and floats can be told apart.
type record map[string]any

func decodeRecord(body []byte) (record, *Error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, assertionFailed("response body is not valid JSON: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, assertionFailed("response body has trailing data after the JSON document")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, assertionFailed("response body: expected object, received %s", shapeOf(v))
	}
	return record(obj), nil
}

// shapeOf names the JSON type of a decoded value.
func shapeOf(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return "integer"
		}
		if strings.ContainsAny(t.String(), ".eE") {
			return "float"
		}
		return "integer out of range"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

func (r record) require(key, label string) (any, error) {
	v, ok := r[key]
	if !ok {
		return nil, assertionFailed("%s not present in response", label)
	}
	return v, nil
}

func (r record) requireString(key, label string) (string, error) {
	v, err := r.require(key, label)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", assertionFailed("%s: expected string, received %s", label, shapeOf(v))
	}
	return s, nil
}

func (r record) requireObject(key, label string) (record, error) {
	v, err := r.require(key, label)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, assertionFailed("%s: expected object, received %s", label, shapeOf(v))
	}
	return record(obj), nil
}

func (r record) requireTime(key, label string) (time.Time, error) {
	s, err := r.requireString(key, label)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, assertionFailed("%s: expected an ISO-8601 timestamp, received %q", label, s)
	}
	return t, nil
}

// optional accessors return the zero value when the key is absent or null,
// and fail only when a present value has the wrong shape.

func (r record) optionalBool(key, label string) (bool, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, assertionFailed("%s: expected boolean, received %s", label, shapeOf(v))
	}
	return b, nil
}

func (r record) optionalString(key, label string) (string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", assertionFailed("%s: expected string, received %s", label, shapeOf(v))
	}
	return s, nil
}

func (r record) optionalInt(key, label string) (int64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, assertionFailed("%s: expected integer, received %s", label, shapeOf(v))
	}
	i, err := n.Int64()
	if err != nil {
		return 0, assertionFailed("%s: expected integer, received %s", label, shapeOf(n))
	}
	return i, nil
}
