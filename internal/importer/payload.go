package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Shape names a recognised response layout.
type Shape string

const (
	ShapeTicketmaster Shape = "ticketmaster" // {"_embedded": {"events": [...]}}
	ShapeEvents       Shape = "events"       // {"events": [...]}
	ShapeDataEvents   Shape = "dataEvents"   // {"data": {"events": [...]}}
	ShapeItems        Shape = "items"        // {"items": [...]}
	ShapeArray        Shape = "array"        // [...]
)

var (
	// ErrHTMLBody is returned when an endpoint answers with an HTML error page.
	ErrHTMLBody = errors.New("importer: html response instead of json")
	// ErrUnsupportedShape is returned for JSON that matches no known layout.
	ErrUnsupportedShape = errors.New("importer: unsupported response shape")
	// ErrEmptyBody is returned for a blank response.
	ErrEmptyBody = errors.New("importer: empty response body")
)

// FaultError carries an API-level fault reported inside a 2xx response.
type FaultError struct {
	Message string
}

func (e *FaultError) Error() string {
	return "importer: upstream fault: " + e.Message
}

// Payload is a decoded response: its shape plus the raw event records.
type Payload struct {
	Shape   Shape
	Records []json.RawMessage
}

type envelope struct {
	Contents *string          `json:"contents"`
	Fault    *fault           `json:"fault"`
	Events   *json.RawMessage `json:"events"`
	Items    *json.RawMessage `json:"items"`
	Data     *struct {
		Events *json.RawMessage `json:"events"`
	} `json:"data"`
	Embedded *struct {
		Events *json.RawMessage `json:"events"`
	} `json:"_embedded"`
	Page *json.RawMessage `json:"page"`
}

type fault struct {
	FaultString string `json:"faultstring"`
}

// Decode recognises the response layout. Proxy wrappers of the form {"contents": "<json>"} are
// unwrapped first.
func Decode(body []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Payload{}, ErrEmptyBody
	}
	if looksLikeHTML(trimmed) {
		return Payload{}, ErrHTMLBody
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return Payload{}, fmt.Errorf("decode array payload: %w", err)
		}
		return Payload{Shape: ShapeArray, Records: records}, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}

	if env.Contents != nil {
		inner := *env.Contents
		if strings.Contains(inner, "NOT_FOUND") {
			return Payload{}, ErrHTMLBody
		}
		return Decode([]byte(inner))
	}
	if env.Fault != nil {
		return Payload{}, &FaultError{Message: env.Fault.FaultString}
	}

	switch {
	case env.Events != nil:
		return records(ShapeEvents, *env.Events)
	case env.Data != nil && env.Data.Events != nil:
		return records(ShapeDataEvents, *env.Data.Events)
	case env.Items != nil:
		return records(ShapeItems, *env.Items)
	case env.Embedded != nil && env.Embedded.Events != nil:
		return records(ShapeTicketmaster, *env.Embedded.Events)
	case env.Page != nil:
		// discovery API omits _embedded when nothing matched
		return Payload{Shape: ShapeTicketmaster}, nil
	}
	return Payload{}, ErrUnsupportedShape
}

func records(shape Shape, raw json.RawMessage) (Payload, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return Payload{}, fmt.Errorf("%w: %s is not a list", ErrUnsupportedShape, shape)
	}
	return Payload{Shape: shape, Records: list}, nil
}

func looksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 256 {
		head = head[:256]
	}
	lower := bytes.ToLower(bytes.TrimSpace(head))
	return bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<!doctype html>"))
}
