package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/attempt-engine/internal/events"
)

func TestStreamSessionEvents_ForwardsOnlyOwnSession(t *testing.T) {
	s := newTestServer(t)
	view := s.open(t)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + view.SessionID + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	ctx := context.Background()
	require.NoError(t, s.publisher.PublishEvent(ctx, events.NewAutosaveErrorChangedEvent("other-session", 42, 1, true)))
	require.NoError(t, s.publisher.PublishEvent(ctx, events.NewAutosaveErrorChangedEvent(view.SessionID, 42, 900, true)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event events.Event
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, view.SessionID, event.SessionID)
	assert.Equal(t, events.EventAutosaveErrorChanged, event.Type)
	data, ok := event.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["active"])
}

func TestStreamSessionEvents_UnknownSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/sessions/missing/events", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
