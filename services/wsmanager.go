package services

import (
	"sync"
	"time"

	"socialfeed/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSConnManager держит WebSocket-подключения клиентов, подписанных на ленту
type WSConnManager struct {
	mu           sync.RWMutex
	feeds        map[string][]*websocket.Conn
	writeTimeout time.Duration
}

const wsWriteTimeout = 5 * time.Second

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		feeds:        make(map[string][]*websocket.Conn),
		writeTimeout: wsWriteTimeout,
	}
}

func (m *WSConnManager) Add(feed string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds[feed] = append(m.feeds[feed], conn)
}

func (m *WSConnManager) Remove(feed string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := m.feeds[feed]
	for i, c := range conns {
		if c == conn {
			m.feeds[feed] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(m.feeds[feed]) == 0 {
		delete(m.feeds, feed)
	}
}

func (m *WSConnManager) Count(feed string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.feeds[feed])
}

// Send пишет сообщение всем подписчикам ленты. Подключение, на которое не удалось
// записать за wsWriteTimeout, закрывается и исключается из рассылки.
func (m *WSConnManager) Send(feed string, message []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns := m.feeds[feed]
	alive := conns[:0]
	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(m.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Log.Debug("dropping WebSocket subscriber", zap.String("feed", feed), zap.Error(err))
			_ = conn.Close()
			continue
		}
		alive = append(alive, conn)
	}
	if len(alive) == 0 {
		delete(m.feeds, feed)
		return
	}
	m.feeds[feed] = alive
}
