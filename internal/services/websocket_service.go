package services

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gudam-backend/internal/models"
)

const (
	// streamWriteWait bounds a single websocket write.
	streamWriteWait = 10 * time.Second

	// streamSendBuffer is the per-connection backlog before a slow consumer
	// gets dropped.
	streamSendBuffer = 256
)

// streamClient is one live websocket connection. All writes to the connection
// go through the send channel; writePump is its only writer.
type streamClient struct {
	conn *websocket.Conn
	send chan *models.Notification
}

// writePump drains the send channel onto the connection until the hub closes
// the channel or a write fails. Closing the connection wakes the read loop,
// which unregisters the client.
func (c *streamClient) writePump() {
	defer c.conn.Close()
	for notif := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := c.conn.WriteJSON(notif); err != nil {
			log.Printf("notification push failed for connection: %v", err)
			return
		}
	}
}

// NotificationHub maintains live websocket subscribers per user and pushes
// notifications to them as they are created.
type NotificationHub struct {
	mutex   sync.Mutex
	clients map[string]map[*streamClient]bool
}

// NewNotificationHub creates an empty hub.
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		clients: make(map[string]map[*streamClient]bool),
	}
}

// Publish queues a notification for every live connection of its user.
// Consumers that cannot keep up are dropped rather than blocking the caller.
func (h *NotificationHub) Publish(notif *models.Notification) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	conns := h.clients[notif.UserID]
	for client := range conns {
		select {
		case client.send <- notif:
		default:
			log.Printf("dropping slow notification stream for user %s", notif.UserID)
			delete(conns, client)
			close(client.send)
		}
	}
	if len(conns) == 0 {
		delete(h.clients, notif.UserID)
	}
}

func (h *NotificationHub) add(userID string, client *streamClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*streamClient]bool)
	}
	h.clients[userID][client] = true
}

// remove unregisters the client and closes its send channel, ending its
// writePump. The channel is closed at most once because removal from the map
// and the close happen under the same lock.
func (h *NotificationHub) remove(userID string, client *streamClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	conns, ok := h.clients[userID]
	if !ok {
		return
	}
	if _, live := conns[client]; !live {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
}

// ConnectionCount returns the number of live connections for a user.
func (h *NotificationHub) ConnectionCount(userID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[userID])
}

var notificationUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens in the CORS middleware; websocket upgrades
		// carry the same browser origins.
		return true
	},
}

// HandleStream upgrades the request and keeps the connection registered
// until the client goes away. The read loop only consumes control frames;
// writes happen solely on the client's writePump.
func (h *NotificationHub) HandleStream(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "ব্যবহারকারী আইডি প্রয়োজন (User ID is required)",
		})
		return
	}

	conn, err := notificationUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan *models.Notification, streamSendBuffer),
	}
	h.add(userID, client)
	go client.writePump()
	defer h.remove(userID, client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
