package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayMock struct {
	body json.RawMessage
	err  error
	last url.Values
}

func (m *relayMock) Forward(ctx context.Context, in url.Values) (json.RawMessage, error) {
	m.last = in
	return m.body, m.err
}

func TestProxyHandlerPreflight(t *testing.T) {
	h := NewProxyHandler(&relayMock{}, nil)

	c, w := newTestContext(http.MethodOptions, "/functions/ticketmaster", "")
	h.Preflight(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestProxyHandlerRelaysUpstreamBody(t *testing.T) {
	relay := &relayMock{body: json.RawMessage(`{"_embedded":{"events":[]},"page":{"totalElements":0}}`)}
	h := NewProxyHandler(relay, nil)

	c, w := newTestContext(http.MethodGet, "/functions/ticketmaster?keyword=jazz&city=Chicago", "")
	h.Ticketmaster(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, string(relay.body), w.Body.String())
	assert.Equal(t, "jazz", relay.last.Get("keyword"))
	assert.Equal(t, "Chicago", relay.last.Get("city"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestProxyHandlerUpstreamFailure(t *testing.T) {
	h := NewProxyHandler(&relayMock{err: errors.New("dial tcp: timeout")}, nil)

	c, w := newTestContext(http.MethodGet, "/functions/ticketmaster", "")
	h.Ticketmaster(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch events"}`, w.Body.String())
}
