package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"neurolearn-backend/internal/models"
)

type staticVerifier map[string]uuid.UUID

func (v staticVerifier) ParseLearnerID(token string) (uuid.UUID, error) {
	id, ok := v[token]
	if !ok {
		return uuid.Nil, errors.New("bad token")
	}
	return id, nil
}

func TestHandleWebSocket_RejectsBadTokens(t *testing.T) {
	hub := NewHub(nil, staticVerifier{}, zap.NewNop())

	for _, target := range []string{"/api/v1/ws", "/api/v1/ws?token=forged"} {
		rec := httptest.NewRecorder()
		hub.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", target, rec.Code)
		}
	}
}

func TestHub_DeliversToLearner(t *testing.T) {
	learner := uuid.New()
	hub := NewHub(nil, staticVerifier{"good": learner}, zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=good"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount(learner) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.SendToLearner(learner, models.WSMessage{Type: "completed"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.WSMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Type != "completed" {
		t.Errorf("Expected completed message, got %q", got.Type)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ConnectionCount(learner) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was never unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
