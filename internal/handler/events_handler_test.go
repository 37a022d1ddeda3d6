package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Baaaki/flavorshare/internal/broker"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanBroker delivers published events straight to its single subscriber.
type chanBroker struct {
	ch chan broker.Event
}

func newChanBroker() *chanBroker {
	return &chanBroker{ch: make(chan broker.Event, 16)}
}

func (b *chanBroker) Publish(_ context.Context, event broker.Event) error {
	b.ch <- event
	return nil
}

func (b *chanBroker) Subscribe(ctx context.Context) (<-chan broker.Event, error) {
	out := make(chan broker.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-b.ch:
				out <- event
			}
		}
	}()
	return out, nil
}

func (b *chanBroker) Close() error { return nil }

func setupEventsServer(t *testing.T, allowedOrigins []string, sessionLifetime time.Duration) (*EventsHandler, *chanBroker, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Init(false)

	events := newChanBroker()
	h := NewEventsHandler(events, allowedOrigins)
	if sessionLifetime > 0 {
		h.sessionLifetime = sessionLifetime
	}

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	router := gin.New()
	router.GET("/api/events", h.HandleEvents)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return h, events, "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) broker.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event broker.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestEventsHandler_FiltersByRecipe(t *testing.T) {
	h, events, url := setupEventsServer(t, nil, 0)
	recipeA, recipeB := uuid.New(), uuid.New()

	all := dial(t, url)
	onlyA := dial(t, url+"?recipeId="+recipeA.String())
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	userID := uuid.New()
	require.NoError(t, events.Publish(context.Background(), broker.NewEvent(broker.EventRecipeLiked, recipeB, userID, nil)))
	require.NoError(t, events.Publish(context.Background(), broker.NewEvent(broker.EventCommentAdded, recipeA, userID, nil)))

	first := readEvent(t, all)
	assert.Equal(t, broker.EventRecipeLiked, first.Type)
	assert.Equal(t, recipeB, first.RecipeID)
	second := readEvent(t, all)
	assert.Equal(t, broker.EventCommentAdded, second.Type)

	filtered := readEvent(t, onlyA)
	assert.Equal(t, broker.EventCommentAdded, filtered.Type)
	assert.Equal(t, recipeA, filtered.RecipeID)
	assert.Equal(t, userID, filtered.UserID)
}

func TestEventsHandler_RemovesClosedClients(t *testing.T) {
	h, _, url := setupEventsServer(t, nil, 0)

	conn := dial(t, url)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventsHandler_SessionExpires(t *testing.T) {
	h, _, url := setupEventsServer(t, nil, 50*time.Millisecond)

	conn := dial(t, url)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var notice map[string]string
	require.NoError(t, conn.ReadJSON(&notice))
	assert.Equal(t, "session_expired", notice["type"])

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventsHandler_RejectsBadRequests(t *testing.T) {
	_, _, url := setupEventsServer(t, []string{"http://localhost:5173"}, 0)

	testCases := []struct {
		name           string
		url            string
		origin         string
		expectedStatus int
	}{
		{"Malformed recipe id", url + "?recipeId=nope", "", http.StatusBadRequest},
		{"Foreign origin", url, "http://evil.example", http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header := http.Header{}
			if tc.origin != "" {
				header.Set("Origin", tc.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(tc.url, header)
			if conn != nil {
				conn.Close()
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tc.expectedStatus, resp.StatusCode)
		})
	}

	header := http.Header{}
	header.Set("Origin", "http://localhost:5173")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
