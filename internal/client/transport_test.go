package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
	"github.com/Nixie-Tech-LLC/beacon/internal/push"
)

func newPushServer(t *testing.T, hub *push.Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := push.StreamConfig{Keepalive: time.Hour}
	connected := model.NewConnected(model.Snapshot{ScreenID: "scr_01", PIN: "AB12"}, time.Now())

	r := gin.New()
	r.GET("/events", func(c *gin.Context) { push.ServeSSE(c, hub.Subscribe(connected), cfg) })
	r.GET("/ws", func(c *gin.Context) { _ = push.ServeWS(c.Writer, c.Request, hub.Subscribe(connected), cfg) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func exerciseTransport(t *testing.T, transport Transport, hub *push.Hub) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := transport.Connect(ctx)
	require.NoError(t, err)
	defer stream.Close()

	frame, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.EventConnected, frame.Event.Type)
	assert.Equal(t, "scr_01", frame.Event.ScreenID)

	hub.Broadcast(model.NewScreenUpdate(model.ActionContentUpdate, model.Snapshot{ScreenID: "scr_01", Content: []model.Slide{"A"}}, time.Now()))
	frame, err = stream.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ActionContentUpdate, frame.Event.Action)
	require.NotNil(t, frame.Event.Snapshot)
	assert.Equal(t, []model.Slide{"A"}, frame.Event.Snapshot.Content)
}

func TestSSETransport(t *testing.T) {
	hub := push.NewHub(4)
	defer hub.Close()
	srv := newPushServer(t, hub)
	exerciseTransport(t, NewSSETransport(srv.URL, time.Second), hub)
}

func TestWSTransport(t *testing.T) {
	hub := push.NewHub(4)
	defer hub.Close()
	srv := newPushServer(t, hub)
	exerciseTransport(t, NewWSTransport(srv.URL, time.Second), hub)
}

func TestSSEStreamParsesCommentsAndFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		fmt.Fprint(w, ":keepalive\n\n")
		fmt.Fprint(w, "event: message\nid: 7\ndata: {\"type\":\"screen_update\",\n")
		fmt.Fprint(w, "data: \"screenId\":\"scr_01\",\"action\":\"name_update\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"keepalive\"}\n\n")
	}))
	defer srv.Close()

	ctx := context.Background()
	stream, err := NewSSETransport(srv.URL, time.Second).Connect(ctx)
	require.NoError(t, err)
	defer stream.Close()

	frame, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.True(t, frame.Keepalive)

	frame, err = stream.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ActionNameUpdate, frame.Event.Action)

	frame, err = stream.Next(ctx)
	require.NoError(t, err)
	assert.True(t, frame.Keepalive)

	_, err = stream.Next(ctx)
	assert.ErrorIs(t, err, model.ErrChannel)
}

func TestSSETransportRejectsWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	_, err := NewSSETransport(srv.URL, time.Second).Connect(context.Background())
	assert.Error(t, err)
}

func TestDecodeFrameRejectsUnknownType(t *testing.T) {
	_, err := decodeFrame([]byte(`{"type":"bogus"}`))
	assert.ErrorIs(t, err, model.ErrChannel)
}
