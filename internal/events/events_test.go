package events

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Notify(_ context.Context, e Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestEventFor(t *testing.T) {
	tests := []struct {
		name   string
		event  Event
		userID string
		want   bool
	}{
		{"broadcast", Event{Type: SyncCompleted}, "u1", true},
		{"addressed", Event{UserIDs: []string{"u1", "u2"}}, "u2", true},
		{"other user", Event{UserIDs: []string{"u1"}}, "u3", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.For(tt.userID))
		})
	}
}

func TestMulti(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("broker down")}
	m := Multi{a, nil, b, Nop{}}

	err := m.Notify(context.Background(), New(ExpenseChanged, "e1", nil, "u1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Equal(t, "e1", a.got[0].EntityID)
}

func TestEncodeAMQP(t *testing.T) {
	body, err := encodeAMQP(New(BudgetExceeded, "g1", map[string]string{"month": "2026-03"}, "u1"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, BudgetExceeded, decoded["type"])
	assert.Equal(t, "g1", decoded["entity_id"])
}

func TestHubRoutesByUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	alice, unsubAlice := hub.Subscribe("alice")
	defer unsubAlice()
	bob, unsubBob := hub.Subscribe("bob")
	defer unsubBob()

	require.NoError(t, hub.Notify(ctx, New(GoalChanged, "g1", nil, "alice")))
	require.NoError(t, hub.Notify(ctx, New(SyncCompleted, "", nil)))

	select {
	case msg := <-alice.Events():
		assert.Contains(t, string(msg), "event: goal.changed")
	case <-time.After(time.Second):
		t.Fatal("alice did not receive addressed event")
	}

	// Bob only sees the broadcast.
	select {
	case msg := <-bob.Events():
		assert.Contains(t, string(msg), "event: sync.completed")
	case <-time.After(time.Second):
		t.Fatal("bob did not receive broadcast event")
	}
}

func TestHubClientIDsAreUnique(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		client, unsubscribe := hub.Subscribe("alice")
		t.Cleanup(unsubscribe)
		require.False(t, seen[client.ID()], "duplicate client id %s", client.ID())
		seen[client.ID()] = true
	}
	assert.Eventually(t, func() bool { return hub.ClientCount() == 50 }, time.Second, 10*time.Millisecond)
}

func TestHubHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	identify := func(r *http.Request) (string, error) {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
		return "", errors.New("missing token")
	}
	server := httptest.NewServer(hub.Handler(identify))
	defer server.Close()

	t.Run("rejects anonymous listeners", func(t *testing.T) {
		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("streams events", func(t *testing.T) {
		reqCtx, reqCancel := context.WithTimeout(ctx, 5*time.Second)
		defer reqCancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, server.URL+"?token=alice", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		reader := bufio.NewReader(resp.Body)
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, ": connected\n", line)

		require.NoError(t, hub.Notify(ctx, New(ExpenseChanged, "e9", nil, "alice")))

		var data string
		for data == "" {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
			}
		}

		var e Event
		require.NoError(t, json.Unmarshal([]byte(data), &e))
		assert.Equal(t, ExpenseChanged, e.Type)
		assert.Equal(t, "e9", e.EntityID)
	})
}
