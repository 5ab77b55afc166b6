package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/catalogconsole/internal/console"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	fail     bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.messages))
	for _, raw := range c.messages {
		var m Message
		if err := json.Unmarshal(raw, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHubRoutesMessagesByRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a1, a2, b := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Subscribe("a", a1)
	hub.Subscribe("a", a2)
	hub.Subscribe("b", b)
	waitFor(t, func() bool { return hub.Count() == 3 })

	n := hub.For("a")
	n.Loading(true)
	n.Toast(console.Toast{ID: "t1", Kind: console.ToastSuccess, Message: "Producto creado exitosamente"})

	waitFor(t, func() bool { return len(a1.received()) == 2 && len(a2.received()) == 2 })

	msgs := a1.received()
	if msgs[0].Type != "loading" || msgs[0].Active == nil || !*msgs[0].Active {
		t.Errorf("Unexpected first message %+v", msgs[0])
	}
	if msgs[1].Type != "toast" || msgs[1].Toast == nil || msgs[1].Toast.Message != "Producto creado exitosamente" {
		t.Errorf("Unexpected second message %+v", msgs[1])
	}
	if len(b.received()) != 0 {
		t.Error("Room b must not receive room a messages")
	}
}

func TestHubDropsBrokenConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	broken := &fakeConn{fail: true}
	hub.Subscribe("a", broken)
	hub.For("a").Loading(false)

	waitFor(t, func() bool { return hub.Count() == 0 })
	broken.mu.Lock()
	defer broken.mu.Unlock()
	if !broken.closed {
		t.Error("Expected broken connection closed")
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := &fakeConn{}
	hub.Subscribe("a", c)
	waitFor(t, func() bool { return hub.Count() == 1 })
	hub.Unsubscribe("a", c)
	hub.Unsubscribe("a", c)

	waitFor(t, func() bool { return hub.Count() == 0 })
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		t.Error("Expected connection closed on unsubscribe")
	}
}
