package stream

import (
	"sync"

	"github.com/zhouzirui/remedy-radar/backend/internal/model/cart"
	"github.com/zhouzirui/remedy-radar/backend/internal/model/chat"
	"github.com/zhouzirui/remedy-radar/backend/internal/notify"
	"github.com/zhouzirui/remedy-radar/backend/internal/service/session"
)

// 推送给客户端的事件名
const (
	EventCart     = "cart"
	EventMessages = "messages"
	EventNotices  = "notices"
)

var eventOrder = []string{EventCart, EventMessages, EventNotices}

// Event is one state snapshot ready to be written to a client.
type Event struct {
	Name string
	Data any
}

// Feed 订阅会话内各个 store，只保留每类事件的最新快照，避免慢客户端阻塞写方。
// Clients therefore receive the latest state of each store, not every
// intermediate change; the stores' own Subscribe keeps the full sequence.
type Feed struct {
	mu      sync.Mutex
	pending map[string]any
	ready   chan struct{}
	cancels []func()
}

// NewFeed subscribes to every store of s. The current state of each store is
// pending right away.
func NewFeed(s *session.Session) *Feed {
	f := &Feed{
		pending: make(map[string]any, len(eventOrder)),
		ready:   make(chan struct{}, 1),
	}
	f.cancels = []func(){
		s.Cart.Subscribe(func(lines []cart.Line) { f.offer(EventCart, s.Cart.Summarize(lines)) }),
		s.Chat.Subscribe(func(msgs []chat.Message) { f.offer(EventMessages, msgs) }),
		s.Notices.Subscribe(func(entries []notify.Entry) { f.offer(EventNotices, entries) }),
	}
	return f
}

func (f *Feed) offer(name string, data any) {
	f.mu.Lock()
	f.pending[name] = data
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
}

// Ready fires when Drain has something to return.
func (f *Feed) Ready() <-chan struct{} {
	return f.ready
}

// Drain returns the pending snapshots in a fixed order and forgets them.
func (f *Feed) Drain() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	events := make([]Event, 0, len(f.pending))
	for _, name := range eventOrder {
		if data, ok := f.pending[name]; ok {
			events = append(events, Event{Name: name, Data: data})
			delete(f.pending, name)
		}
	}
	return events
}

// Close unsubscribes from the stores.
func (f *Feed) Close() {
	for _, cancel := range f.cancels {
		cancel()
	}
}
