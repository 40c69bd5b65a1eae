package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatchUnknownEvent(t *testing.T) {
	r := NewRouter()
	cc := &ConnContext{ConnID: "c1", Username: "alice"}

	_, err := r.dispatch(context.Background(), cc, Envelope{Event: "nope"})
	require.Error(t, err)
	assert.Equal(t, "unknown_event", err.Error())
}

func TestRouterDecodesTypedRequest(t *testing.T) {
	r := NewRouter()

	var got JoinRequest
	Register(r, "chat/join", func(_ context.Context, cc *ConnContext, req JoinRequest) (AckBody, error) {
		got = req
		return AckBody{}, nil
	})

	res, err := r.dispatch(context.Background(), &ConnContext{ConnID: "c1"},
		Envelope{Event: "chat/join", Body: json.RawMessage(`{"room":"dev"}`)})
	require.NoError(t, err)
	assert.Equal(t, AckBody{}, res)
	assert.Equal(t, "dev", got.Room)
}

func TestRouterValidatesRequest(t *testing.T) {
	r := NewRouter()

	called := false
	Register(r, "chat/join", func(_ context.Context, cc *ConnContext, req JoinRequest) (AckBody, error) {
		called = true
		return AckBody{}, nil
	})

	// Empty room fails the required tag before the handler runs.
	_, err := r.dispatch(context.Background(), &ConnContext{ConnID: "c1"},
		Envelope{Event: "chat/join", Body: json.RawMessage(`{"room":""}`)})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestRouterRejectsMalformedBody(t *testing.T) {
	r := NewRouter()

	Register(r, "chat/send", func(_ context.Context, cc *ConnContext, req SendRequest) (AckBody, error) {
		return AckBody{}, nil
	})

	_, err := r.dispatch(context.Background(), &ConnContext{ConnID: "c1"},
		Envelope{Event: "chat/send", Body: json.RawMessage(`{"content":`)})
	assert.Error(t, err)
}

func TestRouterPropagatesHandlerError(t *testing.T) {
	r := NewRouter()
	boom := errors.New("boom")

	Register(r, "chat/send", func(_ context.Context, cc *ConnContext, req SendRequest) (AckBody, error) {
		return AckBody{}, boom
	})

	_, err := r.dispatch(context.Background(), &ConnContext{ConnID: "c1"},
		Envelope{Event: "chat/send", Body: json.RawMessage(`{"content":"hi"}`)})
	assert.ErrorIs(t, err, boom)
}

func TestDeliverToGoneConnection(t *testing.T) {
	srv := &WsServer{}
	err := srv.Deliver("ghost", "chat/message", []byte(`{}`))
	assert.ErrorIs(t, err, errConnGone)
}
