package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/ws"
	"github.com/rs/zerolog/log"
)

type wsHandler struct {
	notificationHub *ws.WebSocketNotificationHub
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func RegisterRoutes(rg *gin.RouterGroup, hub *ws.WebSocketNotificationHub) {
	handler := wsHandler{
		notificationHub: hub,
	}

	routes := rg.Group("/ws")
	routes.GET("/game/:id", handler.serveWs)
}

// serializedConn guards writes: gorilla connections allow one concurrent writer.
type serializedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *serializedConn) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (wsh *wsHandler) serveWs(c *gin.Context) {
	topic := ws.GameTopic(c.Param("id"))
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Error upgrading ws connection")
		return
	}
	defer conn.Close()

	listener := &serializedConn{conn: conn}
	wsh.notificationHub.RegisterListener(topic, listener)
	defer wsh.notificationHub.UnregisterListener(topic, listener)

	for {
		var buffer any
		err := conn.ReadJSON(&buffer)
		if err != nil {
			log.Debug().Err(err).Str("topic", topic).Msg("ws listener disconnected")
			return
		}
	}
}
