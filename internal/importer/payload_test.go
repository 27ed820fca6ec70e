package importer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecognisesShapes(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		shape Shape
		count int
	}{
		{"ticketmaster", `{"_embedded":{"events":[{"id":"a"},{"id":"b"}]},"page":{"size":2}}`, ShapeTicketmaster, 2},
		{"ticketmaster empty", `{"page":{"size":0,"totalElements":0}}`, ShapeTicketmaster, 0},
		{"events", `{"events":[{"id":"a"}]}`, ShapeEvents, 1},
		{"data events", `{"data":{"events":[{"id":"a"},{"id":"b"},{"id":"c"}]}}`, ShapeDataEvents, 3},
		{"items", `{"items":[]}`, ShapeItems, 0},
		{"array", ` [{"id":"a"}]`, ShapeArray, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := Decode([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.shape, payload.Shape)
			assert.Len(t, payload.Records, tc.count)
		})
	}
}

func TestDecodeUnwrapsProxyContents(t *testing.T) {
	inner := `{"events":[{"id":"x"}]}`
	wrapped, err := json.Marshal(map[string]string{"contents": inner})
	require.NoError(t, err)

	payload, err := Decode(wrapped)
	require.NoError(t, err)
	assert.Equal(t, ShapeEvents, payload.Shape)
	assert.Len(t, payload.Records, 1)
}

func TestDecodeFailures(t *testing.T) {
	_, err := Decode([]byte("<!DOCTYPE html><html><body>404</body></html>"))
	assert.ErrorIs(t, err, ErrHTMLBody)

	_, err = Decode([]byte(`{"contents":"<!doctype html><p>NOT_FOUND</p>"}`))
	assert.ErrorIs(t, err, ErrHTMLBody)

	_, err = Decode([]byte(`{"fault":{"faultstring":"Invalid ApiKey"}}`))
	var fault *FaultError
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "Invalid ApiKey", fault.Message)

	_, err = Decode([]byte(`{"results":[]}`))
	assert.ErrorIs(t, err, ErrUnsupportedShape)

	_, err = Decode([]byte(`{"events":{"a":1}}`))
	assert.ErrorIs(t, err, ErrUnsupportedShape)

	_, err = Decode([]byte("  "))
	assert.ErrorIs(t, err, ErrEmptyBody)
}
