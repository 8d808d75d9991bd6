// Package notify is the presentation-facing surface the stores report to:
// short-lived notices and the order receipt panel. Rendering is left to
// whoever subscribes to a Board.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/remedy-radar/backend/internal/observable"
	"github.com/zhouzirui/remedy-radar/backend/internal/observability"
)

// Notifier is what the cart store calls to surface messages.
type Notifier interface {
	Notify(text string)
	ShowReceipt(receipt Receipt)
}

// Kind tells notices and receipts apart.
type Kind string

const (
	KindNotice  Kind = "notice"
	KindReceipt Kind = "receipt"
)

// DismissReason records how an entry left the board.
type DismissReason string

const (
	ReasonClose    DismissReason = "close"
	ReasonBackdrop DismissReason = "backdrop"
	ReasonEscape   DismissReason = "escape"
	ReasonTimeout  DismissReason = "timeout"
)

// ParseReason maps client input onto an explicit dismiss reason.
func ParseReason(raw string) (DismissReason, bool) {
	switch DismissReason(raw) {
	case ReasonClose, ReasonBackdrop, ReasonEscape:
		return DismissReason(raw), true
	case "":
		return ReasonClose, true
	default:
		return "", false
	}
}

// Receipt is the order confirmation shown after a successful checkout.
type Receipt struct {
	Recipient string `json:"recipient"`
	Address   string `json:"address"`
	Items     int    `json:"items"`
	Total     string `json:"total"`
	Email     string `json:"email"`
	Message   string `json:"message"`
}

// Entry is one visible item on the board.
type Entry struct {
	ID        string   `json:"id"`
	Kind      Kind     `json:"kind"`
	Text      string   `json:"text,omitempty"`
	Receipt   *Receipt `json:"receipt,omitempty"`
	CreatedAt int64    `json:"createdAt"`
	ExpiresAt int64    `json:"expiresAt,omitempty"`
}

// Options controls how long entries stay visible. A zero TTL keeps entries
// until dismissed.
type Options struct {
	ToastTTL   time.Duration
	ReceiptTTL time.Duration
}

// Board implements Notifier and keeps the set of visible entries as
// observable state.
type Board struct {
	opts    Options
	logger  *zap.Logger
	entries *observable.Subject[[]Entry]

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewBoard returns an empty board.
func NewBoard(opts Options, logger *zap.Logger) *Board {
	return &Board{
		opts:    opts,
		logger:  observability.OrNop(logger).Named("notify"),
		entries: observable.New([]Entry{}),
		timers:  make(map[string]*time.Timer),
	}
}

// Notify shows a short-lived notice.
func (b *Board) Notify(text string) {
	b.logger.Info("cart message", zap.String("text", text))
	b.push(Entry{Kind: KindNotice, Text: text}, b.opts.ToastTTL)
}

// ShowReceipt shows the order confirmation panel.
func (b *Board) ShowReceipt(receipt Receipt) {
	b.logger.Info("order success",
		zap.String("recipient", receipt.Recipient),
		zap.Int("items", receipt.Items),
		zap.String("total", receipt.Total))
	r := receipt
	b.push(Entry{Kind: KindReceipt, Receipt: &r}, b.opts.ReceiptTTL)
}

func (b *Board) push(entry Entry, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	now := time.Now()
	entry.ID = uuid.NewString()
	entry.CreatedAt = now.UnixMilli()
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl).UnixMilli()
		id := entry.ID
		b.timers[id] = time.AfterFunc(ttl, func() { b.remove(id, ReasonTimeout) })
	}

	b.entries.Update(func(cur []Entry) []Entry {
		next := make([]Entry, 0, len(cur)+1)
		next = append(next, cur...)
		return append(next, entry)
	})
}

// Dismiss removes a receipt on an explicit user action. Notices only leave
// the board on their own. It reports whether anything was removed.
func (b *Board) Dismiss(id string, reason DismissReason) bool {
	for _, e := range b.entries.Value() {
		if e.ID == id && e.Kind != KindReceipt {
			return false
		}
	}
	return b.remove(id, reason)
}

func (b *Board) remove(id string, reason DismissReason) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}

	cur := b.entries.Value()
	idx := -1
	for i, e := range cur {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	b.entries.Update(func(cur []Entry) []Entry {
		next := make([]Entry, 0, len(cur)-1)
		next = append(next, cur[:idx]...)
		return append(next, cur[idx+1:]...)
	})

	b.logger.Debug("entry dismissed", zap.String("id", id), zap.String("reason", string(reason)))
	return true
}

// Entries returns the visible entries, oldest first.
func (b *Board) Entries() []Entry {
	cur := b.entries.Value()
	out := make([]Entry, len(cur))
	copy(out, cur)
	return out
}

// Subscribe registers fn for the current and every later entry set.
func (b *Board) Subscribe(fn func([]Entry)) func() {
	return b.entries.Subscribe(fn)
}

// Close stops pending auto-dismiss timers. Later pushes are ignored.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
}
