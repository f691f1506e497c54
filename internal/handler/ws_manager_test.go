package handler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(userID string) *wsClient {
	return &wsClient{
		userID: userID,
		send:   make(chan []byte, wsSendBuffer),
	}
}

func TestConnectionManager_SendToUser(t *testing.T) {
	m := NewConnectionManager(zap.NewNop())
	client := newTestClient("user-1")
	m.register(client)

	require.True(t, m.SendToUser("user-1", []byte("hello")))
	assert.Equal(t, []byte("hello"), <-client.send)

	assert.False(t, m.SendToUser("ghost", []byte("hello")), "offline user is not an error, just undelivered")
}

func TestConnectionManager_FullBufferDropsMessage(t *testing.T) {
	m := NewConnectionManager(zap.NewNop())
	client := newTestClient("user-1")
	m.register(client)

	for i := 0; i < wsSendBuffer; i++ {
		require.True(t, m.SendToUser("user-1", []byte("msg")))
	}
	assert.False(t, m.SendToUser("user-1", []byte("overflow")))
}

func TestConnectionManager_ReconnectEvictsOldClient(t *testing.T) {
	m := NewConnectionManager(zap.NewNop())
	old := newTestClient("user-1")
	m.register(old)

	replacement := newTestClient("user-1")
	m.register(replacement)

	_, ok := <-old.send
	assert.False(t, ok, "old client's channel must be closed on reconnect")

	require.True(t, m.SendToUser("user-1", []byte("hello")))
	assert.Equal(t, []byte("hello"), <-replacement.send)
}

func TestConnectionManager_UnregisterIgnoresStaleClient(t *testing.T) {
	m := NewConnectionManager(zap.NewNop())
	old := newTestClient("user-1")
	m.register(old)

	replacement := newTestClient("user-1")
	m.register(replacement)

	// Отключение вытесненного клиента не должно трогать актуального
	m.unregister(old)
	assert.True(t, m.SendToUser("user-1", []byte("still here")))
}

// Отправка конкурентна с переподключениями: закрытие канала происходит
// только под write-блокировкой, поэтому отправители не должны попадать
// в закрытый канал ни при каком чередовании.
func TestConnectionManager_ConcurrentSendAndReconnect(t *testing.T) {
	m := NewConnectionManager(zap.NewNop())

	const (
		senders    = 8
		iterations = 2000
	)
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			msg := []byte(fmt.Sprintf("msg-%d", id))
			for {
				select {
				case <-done:
					return
				default:
					m.SendToUser("user-1", msg)
				}
			}
		}(i)
	}

	for i := 0; i < iterations; i++ {
		client := newTestClient("user-1")
		m.register(client)
		// Канал дренируется, чтобы отправители не упирались в буфер
		go func() {
			for range client.send {
			}
		}()
		if i%2 == 0 {
			m.unregister(client)
		}
	}

	// Финальный клиент вытесняет последний зарегистрированный и сразу
	// отключается, чтобы все каналы оказались закрыты
	final := newTestClient("user-1")
	m.register(final)
	m.unregister(final)

	close(done)
	wg.Wait()
}
