package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bedtime-server/internal/models"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS для WebSocket проверяется на уровне reverse proxy
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket апгрейдит соединение и привязывает его к пользователю.
// Через него клиент получает уведомления о ходе генерации.
func (h *Handler) handleWebSocket(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrUnauthorized.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Не удалось апгрейдить WebSocket", zap.Error(err))
		return
	}

	client := &wsClient{
		userID: userID.String(),
		conn:   conn,
		send:   make(chan []byte, wsSendBuffer),
	}
	h.wsManager.register(client)

	go h.writePump(client)
	go h.readPump(client)
}

// readPump читает входящие фреймы только ради контроля живости
// соединения, данных от клиента по этому каналу не ожидается.
func (h *Handler) readPump(client *wsClient) {
	defer func() {
		h.wsManager.unregister(client)
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(1024)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket закрыт с ошибкой",
					zap.String("userID", client.userID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Handler) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
