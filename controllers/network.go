package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"brawlhub/middleware"
	models "brawlhub/models/postgres"
	"brawlhub/services/connections"
	"brawlhub/services/events"
	"brawlhub/services/lobby"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// The liveness window: a connection with no pong inside it is considered
	// dead and cleaned up exactly like a logout.
	pongWait = 60 * time.Second
	// Ping interval; must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// @Summary Upgrades to the live event connection
// @Description Websocket endpoint; authenticate with ?token=<bearer JWT>
// @Tags network
// @Param token query string true "Bearer JWT token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} object{error=string}
// @Router /ws [get]
func HandleWebSocket(db *gorm.DB, lobbies *lobby.Service, registry *connections.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}
		username, err := middleware.TokenUsername(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("controllers: websocket upgrade failed for %s: %v", username, err)
			return
		}

		client := connections.NewClient(username)
		registry.Register(client)
		log.Printf("controllers: user %s is online now", username)

		// Either loop ending must run the same presence cleanup an explicit
		// logout does, exactly once.
		var cleanupOnce sync.Once
		cleanup := func() {
			cleanupOnce.Do(func() {
				conn.Close()
				client.Close()
				if registry.Remove(client) {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := lobbies.LeaveProcess(ctx, username); err != nil {
						log.Printf("controllers: error leaving lobby on disconnect for %s: %v", username, err)
					}
					if err := db.Model(&models.User{}).Where("username = ?", username).
						Update("online", false).Error; err != nil {
						log.Printf("controllers: error flipping %s offline: %v", username, err)
					}
				}
				log.Printf("controllers: user %s disconnected", username)
			})
		}

		go writeLoop(conn, client, cleanup)
		go readLoop(conn, client, db, cleanup)
	}
}

// readLoop parses inbound command envelopes and routes them by their
// (resource, action) pair. It also enforces the liveness window via pongs.
func readLoop(conn *websocket.Conn, client *connections.Client, db *gorm.DB, cleanup func()) {
	defer cleanup()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("controllers: websocket error for %s: %v", client.Username, err)
			}
			return
		}

		var command events.Event
		if err := json.Unmarshal(message, &command); err != nil {
			log.Printf("controllers: discarding malformed command from %s: %v", client.Username, err)
			continue
		}
		handleCommand(client, db, command)
	}
}

// writeLoop drains the outbound queue into the socket and keeps the
// connection alive with pings.
func writeLoop(conn *websocket.Conn, client *connections.Client, cleanup func()) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer cleanup()

	for {
		select {
		case message := <-client.Outbound():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleCommand serves the few commands clients may issue over the socket
// itself; everything stateful goes through the HTTP API. Unknown pairs are
// dropped.
func handleCommand(client *connections.Client, db *gorm.DB, command events.Event) {
	switch {
	case command.Resource == "friendlist" && command.Action == "get":
		var friendships []models.Friendship
		if err := db.Where("username1 = ? OR username2 = ?", client.Username, client.Username).
			Find(&friendships).Error; err != nil {
			log.Printf("controllers: error loading friend list for %s: %v", client.Username, err)
			return
		}
		friends := make([]string, 0, len(friendships))
		for _, f := range friendships {
			if f.Username1 == client.Username {
				friends = append(friends, f.Username2)
			} else {
				friends = append(friends, f.Username1)
			}
		}
		reply, err := json.Marshal(events.Event{
			Resource: "friendlist",
			Action:   "get",
			Payload:  map[string]interface{}{"friends": friends},
		})
		if err != nil {
			return
		}
		client.Send(reply)
	default:
		log.Printf("controllers: unknown command %s/%s from %s",
			command.Resource, command.Action, client.Username)
	}
}
