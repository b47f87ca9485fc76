package service

import (
	"context"
	"encoding/json"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/pkg/logger"
	"learning_platform_backend/pkg/monitoring"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	onlineTTL      = 2 * time.Minute
	chatChannel    = "chat_channel"
)

const (
	EventNewMessage = "NEW_MESSAGE"
	EventViewed     = "MESSAGES_VIEWED"
	EventDeleted    = "MESSAGE_DELETED"
	EventTyping     = "TYPING"
	EventUserStatus = "USER_STATUS"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// inboundFrame is what clients may send; only typing notices are relayed.
type inboundFrame struct {
	Type string `json:"type"`
	Data struct {
		To model.Participant `json:"to"`
	} `json:"data"`
}

type Client struct {
	Hub     *ChatHub
	Conn    *websocket.Conn
	Send    chan []byte
	Who     model.Participant
	Limiter *rate.Limiter
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.leave(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("websocket closed unexpectedly", zap.Error(err), zap.Stringer("participant", c.Who))
			}
			break
		}
		if !c.Limiter.Allow() {
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		monitoring.ChatMessages.WithLabelValues(frame.Type, "in").Inc()

		if frame.Type == EventTyping && frame.Data.To.Kind.Valid() && frame.Data.To != c.Who {
			c.Hub.PushTo([]model.Participant{frame.Data.To}, WSMessage{
				Type: EventTyping,
				Data: map[string]interface{}{"from": c.Who},
			})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one frame per message; clients parse each frame as JSON
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[model.Participant]*Client
	mu      sync.RWMutex
}

// ChatHub keeps the websocket connections of this instance. Fan-out goes
// through Redis pubsub so every instance delivers to its own clients.
type ChatHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	rdb        *redis.Client
	chats      *repository.ChatRepository
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewChatHub(rdb *redis.Client, chats *repository.ChatRepository) *ChatHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &ChatHub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
		chats:      chats,
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{clients: make(map[model.Participant]*Client)}
	}
	return h
}

func (h *ChatHub) getShard(p model.Participant) *shard {
	idx := p.RefID * 2
	if p.Kind == model.ParticipantAdmin {
		idx++
	}
	return h.shards[idx%shardCount]
}

func onlineKey(p model.Participant) string {
	return "chat:online:" + p.String()
}

type pubSubMessage struct {
	Targets []model.Participant `json:"targets"`
	Payload json.RawMessage     `json:"payload"`
}

func (h *ChatHub) Run() {
	if h.rdb != nil {
		pubsub := h.rdb.Subscribe(h.ctx, chatChannel)
		defer pubsub.Close()
		go func() {
			for msg := range pubsub.Channel() {
				var ps pubSubMessage
				if err := json.Unmarshal([]byte(msg.Payload), &ps); err != nil {
					logger.Log.Error("chat pubsub decode failed", zap.Error(err))
					continue
				}
				h.deliverLocal(ps.Targets, ps.Payload)
			}
		}()
	}

	heartbeat := time.NewTicker(time.Minute)
	defer heartbeat.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			s := h.getShard(client.Who)
			s.mu.Lock()
			if old, ok := s.clients[client.Who]; ok {
				close(old.Send)
				monitoring.ChatOnlineClients.Dec()
			}
			s.clients[client.Who] = client
			s.mu.Unlock()
			monitoring.ChatOnlineClients.Inc()
			h.setPresence(client.Who, true)

		case client := <-h.unregister:
			s := h.getShard(client.Who)
			s.mu.Lock()
			current, ok := s.clients[client.Who]
			if ok && current == client {
				delete(s.clients, client.Who)
				close(client.Send)
				monitoring.ChatOnlineClients.Dec()
			}
			s.mu.Unlock()
			if ok && current == client {
				h.setPresence(client.Who, false)
			}

		case <-heartbeat.C:
			h.refreshPresence()
		}
	}
}

func (h *ChatHub) setPresence(p model.Participant, online bool) {
	if h.rdb != nil {
		var err error
		if online {
			err = h.rdb.Set(h.ctx, onlineKey(p), "true", onlineTTL).Err()
		} else {
			err = h.rdb.Del(h.ctx, onlineKey(p)).Err()
		}
		if err != nil {
			logger.Log.Warn("chat presence update failed", zap.Error(err))
		}
	}

	status := "offline"
	if online {
		status = "online"
	}
	if h.chats == nil {
		return
	}
	partners, err := h.chats.Partners(p)
	if err != nil || len(partners) == 0 {
		return
	}
	h.PushTo(partners, WSMessage{
		Type: EventUserStatus,
		Data: map[string]interface{}{"participant": p, "status": status},
	})
}

func (h *ChatHub) refreshPresence() {
	if h.rdb == nil {
		return
	}
	pipe := h.rdb.Pipeline()
	count := 0
	for _, s := range h.shards {
		s.mu.RLock()
		for p := range s.clients {
			pipe.Expire(h.ctx, onlineKey(p), onlineTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		if _, err := pipe.Exec(h.ctx); err != nil {
			logger.Log.Warn("chat presence refresh failed", zap.Error(err))
		}
	}
}

// join hands c to Run. It reports false once the hub is stopped.
func (h *ChatHub) join(c *Client) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *ChatHub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Stop closes every local connection and clears their presence keys.
func (h *ChatHub) Stop() {
	h.cancel()

	var closed []model.Participant
	for _, s := range h.shards {
		s.mu.Lock()
		for p, client := range s.clients {
			closed = append(closed, p)
			close(client.Send)
			delete(s.clients, p)
		}
		s.mu.Unlock()
	}
	if h.rdb != nil && len(closed) > 0 {
		pipe := h.rdb.Pipeline()
		for _, p := range closed {
			pipe.Del(context.Background(), onlineKey(p))
		}
		pipe.Exec(context.Background())
	}
	monitoring.ChatOnlineClients.Set(0)
	logger.Log.Info("chat hub stopped", zap.Int("closedConnections", len(closed)))
}

// PushTo delivers msg to the targets on whichever instance holds them.
func (h *ChatHub) PushTo(targets []model.Participant, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("chat event encode failed", zap.Error(err))
		return
	}
	monitoring.ChatMessages.WithLabelValues(msg.Type, "out").Inc()

	if h.rdb == nil {
		h.deliverLocal(targets, payload)
		return
	}
	body, _ := json.Marshal(pubSubMessage{Targets: targets, Payload: payload})
	if err := h.rdb.Publish(h.ctx, chatChannel, body).Err(); err != nil {
		logger.Log.Warn("chat publish failed, delivering locally", zap.Error(err))
		h.deliverLocal(targets, payload)
	}
}

func (h *ChatHub) deliverLocal(targets []model.Participant, payload []byte) {
	for _, p := range targets {
		s := h.getShard(p)
		s.mu.RLock()
		if client, ok := s.clients[p]; ok {
			select {
			case client.Send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

func (h *ChatHub) IsOnline(p model.Participant) bool {
	s := h.getShard(p)
	s.mu.RLock()
	_, ok := s.clients[p]
	s.mu.RUnlock()
	if ok || h.rdb == nil {
		return ok
	}
	val, err := h.rdb.Get(h.ctx, onlineKey(p)).Result()
	return err == nil && val == "true"
}

func ServeWs(hub *ChatHub, w http.ResponseWriter, r *http.Request, who model.Participant) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("websocket upgrade failed", zap.Error(err), zap.Stringer("participant", who))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Who:     who,
		Limiter: rate.NewLimiter(rate.Limit(30), 50),
	}
	if !hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
