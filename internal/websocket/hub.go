// Package websocket pushes job updates to connected learners.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"neurolearn-backend/internal/models"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenVerifier resolves a bearer token to a learner.
type TokenVerifier interface {
	ParseLearnerID(token string) (uuid.UUID, error)
}

// client serializes writes; gorilla connections allow one concurrent writer.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*client
	cancelFuncs map[uuid.UUID]context.CancelFunc
	redisClient *redis.Client
	verifier    TokenVerifier
	logger      *zap.Logger
}

// NewHub subscribes to learner channels on redisClient. A nil client keeps
// delivery local to this process.
func NewHub(redisClient *redis.Client, verifier TokenVerifier, logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		redisClient: redisClient,
		verifier:    verifier,
		logger:      logger.Named("ws"),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	learnerID, err := h.verifier.ParseLearnerID(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	h.register(learnerID, c)

	go func() {
		defer h.unregister(learnerID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(learnerID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[learnerID] = append(h.connections[learnerID], c)

	if len(h.connections[learnerID]) == 1 && h.redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[learnerID] = cancel
		go h.subscribe(ctx, learnerID)
	}

	h.logger.Debug("connected", zap.Stringer("learner_id", learnerID), zap.Int("connections", len(h.connections[learnerID])))
}

func (h *Hub) unregister(learnerID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[learnerID]
	for i, existing := range conns {
		if existing == c {
			h.connections[learnerID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[learnerID]) == 0 {
		delete(h.connections, learnerID)
		if cancel, ok := h.cancelFuncs[learnerID]; ok {
			cancel()
			delete(h.cancelFuncs, learnerID)
		}
	}

	h.logger.Debug("disconnected", zap.Stringer("learner_id", learnerID))
}

func (h *Hub) subscribe(ctx context.Context, learnerID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, models.LearnerChannel(learnerID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(learnerID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(learnerID uuid.UUID, data []byte) {
	h.mu.RLock()
	conns := append([]*client(nil), h.connections[learnerID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			h.logger.Debug("write failed", zap.Stringer("learner_id", learnerID), zap.Error(err))
		}
	}
}

// SendToLearner delivers msg to this process's connections of the learner.
func (h *Hub) SendToLearner(learnerID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(learnerID, data)
}

// ConnectionCount reports open connections for the learner.
func (h *Hub) ConnectionCount(learnerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[learnerID])
}
