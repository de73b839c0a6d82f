package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pingPeriod     = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
)

type Server struct {
	hub        *Hub
	dispatcher *Dispatcher
	jwtSecret  string
	upgrader   websocket.Upgrader
}

// NewServer accepts origins from allowedOrigins; an empty list accepts any origin.
func NewServer(hub *Hub, access ClubAccess, jwtSecret string, allowedOrigins ...string) *Server {
	return &Server{
		hub:        hub,
		dispatcher: NewDispatcher(hub, access),
		jwtSecret:  jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// HandleWebSocket upgrades GET /ws?token=<jwt>. The connection joins its
// reader's own room immediately.
func (s *Server) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token == "" {
		apierr.Respond(c, apierr.Auth("Access token required"))
		return
	}
	claims, err := utils.ValidateJWT(token, s.jwtSecret)
	if err != nil {
		apierr.Respond(c, apierr.Auth("Invalid token"))
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("realtime_upgrade_failed", "error", err)
		return
	}

	client := NewClient(conn, claims.UserID, claims.Username)
	s.hub.Register(client)
	s.hub.Join(client, UserRoom(client.UserID))
	logger.Info("realtime_client_connected", "user_id", client.UserID, "conn_id", client.ID)

	go client.WritePump()
	go client.ReadPump(s.dispatcher)
}
