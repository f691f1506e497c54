package handler

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsClient - одно WebSocket соединение пользователя.
type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// ConnectionManager управляет активными WebSocket соединениями,
// по одному на пользователя. Новое соединение вытесняет старое.
type ConnectionManager struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
	logger  *zap.Logger
}

// NewConnectionManager создает пустой менеджер соединений.
func NewConnectionManager(logger *zap.Logger) *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*wsClient),
		logger:  logger.Named("WSManager"),
	}
}

func (m *ConnectionManager) register(client *wsClient) {
	m.mu.Lock()
	if old, ok := m.clients[client.userID]; ok {
		m.logger.Info("Закрытие старого WebSocket соединения", zap.String("userID", client.userID))
		// Закрытие канала останавливает writePump старого клиента,
		// он сам закроет соединение
		close(old.send)
	}
	m.clients[client.userID] = client
	m.mu.Unlock()
	m.logger.Info("WebSocket клиент подключен", zap.String("userID", client.userID))
}

func (m *ConnectionManager) unregister(client *wsClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Дерегистрируем только если это всё ещё наше соединение
	if current, ok := m.clients[client.userID]; ok && current == client {
		delete(m.clients, client.userID)
		close(client.send)
		m.logger.Info("WebSocket клиент отключен", zap.String("userID", client.userID))
	}
}

// SendToUser доставляет сообщение пользователю, если он онлайн.
// Возвращает false для оффлайн пользователя или переполненной очереди.
// Блокировка удерживается на время отправки: каналы закрываются только
// под write-блокировкой, поэтому отправка в закрытый канал исключена.
func (m *ConnectionManager) SendToUser(userID string, message []byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, ok := m.clients[userID]
	if !ok {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		m.logger.Warn("Очередь отправки WebSocket переполнена", zap.String("userID", userID))
		return false
	}
}
