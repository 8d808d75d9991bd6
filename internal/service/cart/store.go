package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/remedy-radar/backend/internal/auth"
	"github.com/zhouzirui/remedy-radar/backend/internal/model/cart"
	"github.com/zhouzirui/remedy-radar/backend/internal/notify"
	"github.com/zhouzirui/remedy-radar/backend/internal/observable"
	"github.com/zhouzirui/remedy-radar/backend/internal/observability"
	"github.com/zhouzirui/remedy-radar/backend/internal/storage/blob"
)

// DefaultKey is the blob entry the cart is persisted under.
const DefaultKey = "remedy-radar-cart"

const persistTimeout = 5 * time.Second

// User-facing checkout messages.
const (
	MsgLoginRequired   = "Please login to complete your order"
	MsgCartEmpty       = "Your cart is empty"
	MsgAddressRequired = "Please provide a delivery address"
	MsgCartChanged     = "Your cart changed during checkout, please try again"
)

// Options configures a Store.
type Options struct {
	Key            string
	CurrencySymbol string
	CheckoutDelay  time.Duration
}

// Store owns one shopper's cart: an ordered list of lines, unique by item
// key, mirrored to a blob entry after every mutation.
type Store struct {
	opts     Options
	blobs    blob.Store
	users    auth.Provider
	notifier notify.Notifier
	logger   *zap.Logger

	lines *observable.Subject[[]cart.Line]

	persistMu sync.Mutex

	// genMu guards generation. Any mutation that empties the cart bumps it,
	// as does a completed checkout, so a checkout that was waiting across
	// that change does not apply.
	genMu      sync.Mutex
	generation uint64

	done      chan struct{}
	closeOnce sync.Once
}

// NewStore builds a Store and loads any previously persisted cart. Absent or
// unreadable data leaves the cart empty.
func NewStore(ctx context.Context, opts Options, blobs blob.Store, users auth.Provider, notifier notify.Notifier, logger *zap.Logger) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "₹"
	}
	if blobs == nil {
		blobs = blob.NewMemory()
	}
	if users == nil {
		users = auth.Static{}
	}
	if notifier == nil {
		notifier = discard{}
	}

	s := &Store{
		opts:     opts,
		blobs:    blobs,
		users:    users,
		notifier: notifier,
		logger:   observability.OrNop(logger).Named("cart").With(zap.String("key", opts.Key)),
		done:     make(chan struct{}),
	}
	s.lines = observable.New(s.load(ctx))
	return s
}

func (s *Store) load(ctx context.Context) []cart.Line {
	data, err := s.blobs.Load(ctx, s.opts.Key)
	if errors.Is(err, blob.ErrNotFound) {
		return []cart.Line{}
	}
	if err != nil {
		s.logger.Warn("failed to read cart from storage", zap.Error(err))
		return []cart.Line{}
	}

	var lines []cart.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.Error("failed to parse cart from storage", zap.Error(err))
		return []cart.Line{}
	}
	return sanitize(lines)
}

// sanitize drops non-positive quantities and merges duplicate keys so a
// hand-edited blob cannot break the one-line-per-item invariant.
func sanitize(lines []cart.Line) []cart.Line {
	out := make([]cart.Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if i, ok := index[l.Key]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.Key] = len(out)
		out = append(out, l)
	}
	return out
}

func (s *Store) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	data, err := json.Marshal(s.lines.Value())
	if err != nil {
		s.logger.Error("failed to encode cart", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.blobs.Save(ctx, s.opts.Key, data); err != nil {
		s.logger.Error("failed to save cart to storage", zap.Error(err))
	}
}

// AddItem increments the line for item, or appends one with quantity 1.
func (s *Store) AddItem(ctx context.Context, item cart.Item) {
	key := item.Key()
	s.lines.Update(func(cur []cart.Line) []cart.Line {
		next := make([]cart.Line, 0, len(cur)+1)
		found := false
		for _, l := range cur {
			if l.Key == key {
				l.Quantity++
				found = true
			}
			next = append(next, l)
		}
		if !found {
			next = append(next, cart.NewLine(item, 1))
		}
		return next
	})
	s.persist(ctx)

	s.notifier.Notify(fmt.Sprintf("%s added to cart", item.Name))
}

// RemoveItem drops the line for itemID. Unknown ids are ignored.
func (s *Store) RemoveItem(ctx context.Context, itemID string) {
	s.genMu.Lock()
	emptied := false
	s.lines.Update(func(cur []cart.Line) []cart.Line {
		next := make([]cart.Line, 0, len(cur))
		for _, l := range cur {
			if l.Key != itemID {
				next = append(next, l)
			}
		}
		emptied = len(cur) > 0 && len(next) == 0
		return next
	})
	if emptied {
		s.generation++
	}
	s.genMu.Unlock()

	s.persist(ctx)
}

// UpdateQuantity sets the quantity for itemID; anything below 1 removes the
// line. No line is created for unknown ids.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) {
	if quantity < 1 {
		s.RemoveItem(ctx, itemID)
		return
	}

	s.lines.Update(func(cur []cart.Line) []cart.Line {
		next := make([]cart.Line, 0, len(cur))
		for _, l := range cur {
			if l.Key == itemID {
				l.Quantity = quantity
			}
			next = append(next, l)
		}
		return next
	})
	s.persist(ctx)
}

// ClearCart empties the cart and cancels any checkout still waiting.
func (s *Store) ClearCart(ctx context.Context) {
	s.genMu.Lock()
	s.generation++
	s.lines.Set([]cart.Line{})
	s.genMu.Unlock()

	s.persist(ctx)
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []cart.Line {
	return append([]cart.Line(nil), s.lines.Value()...)
}

// Subscribe registers fn for the current and every later line list. The
// slice passed to fn must be treated as read-only.
func (s *Store) Subscribe(fn func([]cart.Line)) func() {
	return s.lines.Subscribe(fn)
}

// TotalPrice sums unit price times quantity over the current lines.
func (s *Store) TotalPrice() float64 {
	return totalPrice(s.lines.Value())
}

// ItemCount sums quantities over the current lines.
func (s *Store) ItemCount() int {
	return itemCount(s.lines.Value())
}

// Summary is a consistent view of one cart snapshot.
type Summary struct {
	Lines          []cart.Line `json:"lines"`
	ItemCount      int         `json:"itemCount"`
	Total          float64     `json:"total"`
	FormattedTotal string      `json:"formattedTotal"`
}

// Summary describes the current cart.
func (s *Store) Summary() Summary {
	return s.Summarize(s.lines.Value())
}

// Summarize describes lines, typically a snapshot handed to a subscriber.
func (s *Store) Summarize(lines []cart.Line) Summary {
	total := totalPrice(lines)
	copied := make([]cart.Line, len(lines))
	copy(copied, lines)
	return Summary{
		Lines:          copied,
		ItemCount:      itemCount(lines),
		Total:          total,
		FormattedTotal: s.FormatPrice(total),
	}
}

// FormatPrice renders amount with the currency glyph and two decimals.
func (s *Store) FormatPrice(amount float64) string {
	return FormatPrice(s.opts.CurrencySymbol, amount)
}

// FormatPrice renders amount as symbol followed by a fixed two-decimal value.
func FormatPrice(symbol string, amount float64) string {
	return fmt.Sprintf("%s%.2f", symbol, amount)
}

func totalPrice(lines []cart.Line) float64 {
	var total float64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

func itemCount(lines []cart.Line) int {
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return count
}

// Checkout validates the order, waits the simulated processing delay, then
// shows the receipt and clears the cart. It reports whether an order was
// placed. Validation failures are reported through the notifier and return
// immediately without touching the cart.
//
// Once validated, the wait ignores ctx cancellation. The order either
// completes or is superseded by a cart change, so a client that goes away
// does not drop it. Only Close releases a waiting checkout early.
func (s *Store) Checkout(ctx context.Context, address string) bool {
	user, ok := s.users.CurrentUser()
	if !ok {
		s.notifier.Notify(MsgLoginRequired)
		return false
	}

	if len(s.lines.Value()) == 0 {
		s.notifier.Notify(MsgCartEmpty)
		return false
	}

	address = strings.TrimSpace(address)
	if address == "" {
		s.notifier.Notify(MsgAddressRequired)
		return false
	}

	s.genMu.Lock()
	gen := s.generation
	s.genMu.Unlock()

	if s.opts.CheckoutDelay > 0 {
		timer := time.NewTimer(s.opts.CheckoutDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-s.done:
			return false
		}
	}

	s.genMu.Lock()
	if s.generation != gen || len(s.lines.Value()) == 0 {
		s.genMu.Unlock()
		s.logger.Info("checkout superseded by a cart change")
		s.notifier.Notify(MsgCartChanged)
		return false
	}

	var items int
	var total float64
	s.lines.Update(func(cur []cart.Line) []cart.Line {
		items = itemCount(cur)
		total = totalPrice(cur)
		return []cart.Line{}
	})
	s.generation++
	s.genMu.Unlock()

	s.persist(ctx)

	formatted := s.FormatPrice(total)
	s.notifier.ShowReceipt(notify.Receipt{
		Recipient: user.Name,
		Address:   address,
		Items:     items,
		Total:     formatted,
		Email:     user.Email,
		Message:   confirmationMessage(user, address, items, formatted),
	})
	s.logger.Info("order placed", zap.String("user", user.ID), zap.Int("items", items), zap.String("total", formatted))
	return true
}

func confirmationMessage(user auth.User, address string, items int, total string) string {
	var b strings.Builder
	b.WriteString("Order Successful!\n\n")
	fmt.Fprintf(&b, "Hi %s,\n", user.Name)
	fmt.Fprintf(&b, "Your order has been placed successfully to %s.\n\n", address)
	b.WriteString("Order Details:\n")
	fmt.Fprintf(&b, "- Items: %d item(s)\n", items)
	fmt.Fprintf(&b, "- Total: %s\n", total)
	fmt.Fprintf(&b, "- Email: %s\n\n", user.Email)
	b.WriteString("Note: This is for learning purposes only. Your order will not be delivered.\n\n")
	b.WriteString("Thank you for using our app!")
	return b.String()
}

// Close releases checkouts that are still waiting; they report false.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

type discard struct{}

func (discard) Notify(string)              {}
func (discard) ShowReceipt(notify.Receipt) {}
