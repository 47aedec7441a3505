package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/doyalikess/stakehouse/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	accounts store.AccountStore
	hub      *WebSocketHub
}

// WebSocketHub fans settlement events out to connected clients. It
// implements games.Broadcaster, so the settlement pipeline never touches a
// connection directly.
type WebSocketHub struct {
	clients    map[string][]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	AccountID string
	Conn      *websocket.Conn
}

type Message struct {
	Type      string      `json:"type"`
	AccountID string      `json:"-"`
	Data      interface{} `json:"data"`
}

func NewWebSocketHandler(accounts store.AccountStore) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string][]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{
		accounts: accounts,
		hub:      hub,
	}
}

func (h *WebSocketHandler) Hub() *WebSocketHub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	accountID := c.GetString("account_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		AccountID: accountID,
		Conn:      conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(c, client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.sendPong(client)
	}
}

func (h *WebSocketHandler) sendBalance(c *gin.Context, client *Client) {
	account, err := h.accounts.Get(c.Request.Context(), client.AccountID)
	if err != nil {
		log.Printf("Failed to get account for WS: %v", err)
		return
	}

	msg := Message{
		Type: "BALANCE_UPDATE",
		Data: gin.H{
			"balance":       account.Balance,
			"total_wagered": account.TotalWagered,
			"total_won":     account.TotalWon,
			"level":         account.Level(),
		},
	}

	client.Conn.WriteJSON(msg)
}

func (h *WebSocketHandler) sendPong(client *Client) {
	msg := Message{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	}

	client.Conn.WriteJSON(msg)
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.AccountID] = append(hub.clients[client.AccountID], client.Conn)
			log.Printf("Client registered: %s", client.AccountID)

		case client := <-hub.unregister:
			conns := hub.clients[client.AccountID]
			for i, conn := range conns {
				if conn == client.Conn {
					hub.clients[client.AccountID] = append(conns[:i], conns[i+1:]...)
					break
				}
			}
			if len(hub.clients[client.AccountID]) == 0 {
				delete(hub.clients, client.AccountID)
			}
			log.Printf("Client unregistered: %s", client.AccountID)

		case message := <-hub.broadcast:
			hub.dispatch(message)
		}
	}
}

func (hub *WebSocketHub) dispatch(message *Message) {
	if message.AccountID != "" {
		for _, conn := range hub.clients[message.AccountID] {
			conn.WriteJSON(message)
		}
		return
	}
	for _, conns := range hub.clients {
		for _, conn := range conns {
			conn.WriteJSON(message)
		}
	}
}

// Notify implements games.Broadcaster for one account's connections.
func (hub *WebSocketHub) Notify(accountID, event string, payload interface{}) {
	select {
	case hub.broadcast <- &Message{Type: event, AccountID: accountID, Data: payload}:
	default:
		log.Printf("WS hub queue full, dropped %s for %s", event, accountID)
	}
}

// Broadcast implements games.Broadcaster for every connection.
func (hub *WebSocketHub) Broadcast(event string, payload interface{}) {
	select {
	case hub.broadcast <- &Message{Type: event, Data: payload}:
	default:
		log.Printf("WS hub queue full, dropped broadcast %s", event)
	}
}
