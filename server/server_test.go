package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Handlers run concurrently per message, so writes from parallel handlers must
// all arrive intact on the one connection.
func TestConcurrentWrites(t *testing.T) {
	const writers = 8
	const perWriter = 20

	ready := make(chan *wsConn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		ready <- &wsConn{conn: conn}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	wc := <-ready
	defer wc.conn.Close()

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				err := wc.writeJSON(Message{Type: "status", Content: "working"})
				assert.NoError(t, err)
			}
		}()
	}

	received := 0
	for received < writers*perWriter {
		var msg Message
		require.NoError(t, client.ReadJSON(&msg))
		assert.Equal(t, "status", msg.Type)
		assert.Equal(t, "working", msg.Content)
		received++
	}
	wg.Wait()
}
