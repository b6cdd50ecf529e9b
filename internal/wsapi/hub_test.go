package wsapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/toolgraph/shgat/internal/domain"
)

func TestHubBroadcastsToConnectedClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	handler := NewHandler(hub, zerolog.Nop())
	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the server goroutine time to register the client before
	// broadcasting, since registration is itself a channel send.
	time.Sleep(50 * time.Millisecond)

	rec := domain.DecisionLogRecord{Algorithm: "shgat", FinalScore: 0.9}
	hub.Broadcast(rec)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.DecisionLogRecord
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, rec.Algorithm, got.Algorithm)
	require.Equal(t, rec.FinalScore, got.FinalScore)
}

func TestPumpForwardsRecordsToHub(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	handler := NewHandler(hub, zerolog.Nop())
	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	time.Sleep(50 * time.Millisecond)

	records := make(chan domain.DecisionLogRecord, 1)
	Pump(hub, records)

	records <- domain.DecisionLogRecord{Algorithm: "hybrid"}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.DecisionLogRecord
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "hybrid", got.Algorithm)
	close(records)
}

func TestHandlerRejectsNonUpgradeRequest(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	handler := NewHandler(hub, zerolog.Nop())
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NotEqual(t, http.StatusSwitchingProtocols, resp.StatusCode)
}
