package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/zhouzirui/remedy-radar/backend/internal/auth"
	"github.com/zhouzirui/remedy-radar/backend/internal/model/cart"
	"github.com/zhouzirui/remedy-radar/backend/internal/notify"
	"github.com/zhouzirui/remedy-radar/backend/internal/storage/blob"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu       sync.Mutex
	notices  []string
	receipts []notify.Receipt
}

func (r *recorder) Notify(text string) {
	r.mu.Lock()
	r.notices = append(r.notices, text)
	r.mu.Unlock()
}

func (r *recorder) ShowReceipt(receipt notify.Receipt) {
	r.mu.Lock()
	r.receipts = append(r.receipts, receipt)
	r.mu.Unlock()
}

func (r *recorder) lastNotice() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return ""
	}
	return r.notices[len(r.notices)-1]
}

type failingBlobs struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingBlobs) Load(context.Context, string) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return nil, blob.ErrNotFound
}

func (f *failingBlobs) Save(context.Context, string, []byte) error {
	f.saves++
	return f.saveErr
}

var (
	paracetamol = cart.Item{ID: "med-1", Name: "Paracetamol", Price: 10.00}
	omeprazole  = cart.Item{LegacyID: "legacy-7", Name: "Omeprazole", Price: 5.50}
	signedIn    = auth.Static{User: auth.User{ID: "u1", Name: "Asha", Email: "asha@example.com"}, LoggedIn: true}
)

func newTestStore(t *testing.T, blobs blob.Store, users auth.Provider, delay time.Duration) (*Store, *recorder) {
	t.Helper()
	rec := &recorder{}
	store := NewStore(context.Background(), Options{CheckoutDelay: delay}, blobs, users, rec, nil)
	t.Cleanup(store.Close)
	return store, rec
}

func TestAddItemIncrementsSingleLine(t *testing.T) {
	store, rec := newTestStore(t, nil, nil, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		store.AddItem(ctx, paracetamol)
	}

	lines := store.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", lines[0].Quantity)
	}
	if len(rec.notices) != 3 || rec.notices[0] != "Paracetamol added to cart" {
		t.Fatalf("unexpected notices %v", rec.notices)
	}
}

func TestAddItemUsesLegacyIDFallback(t *testing.T) {
	store, _ := newTestStore(t, nil, nil, 0)
	ctx := context.Background()

	store.AddItem(ctx, omeprazole)
	store.AddItem(ctx, omeprazole)
	store.AddItem(ctx, cart.Item{Name: "Mystery"})

	lines := store.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(lines))
	}
	if lines[0].Key != "legacy-7" || lines[0].Quantity != 2 {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1].Key != "" {
		t.Fatalf("expected empty key for id-less item, got %q", lines[1].Key)
	}
}

func TestUpdateQuantityBelowOneRemoves(t *testing.T) {
	ctx := context.Background()

	viaUpdate, _ := newTestStore(t, nil, nil, 0)
	viaRemove, _ := newTestStore(t, nil, nil, 0)
	for _, s := range []*Store{viaUpdate, viaRemove} {
		s.AddItem(ctx, paracetamol)
		s.AddItem(ctx, omeprazole)
	}

	viaUpdate.UpdateQuantity(ctx, "med-1", 0)
	viaRemove.RemoveItem(ctx, "med-1")

	if diff := cmp.Diff(viaRemove.Lines(), viaUpdate.Lines()); diff != "" {
		t.Fatalf("update(0) differs from remove (-remove +update):\n%s", diff)
	}
	if len(viaUpdate.Lines()) != 1 {
		t.Fatalf("expected one remaining line, got %d", len(viaUpdate.Lines()))
	}
}

func TestUpdateQuantitySetsAndIgnoresUnknown(t *testing.T) {
	store, _ := newTestStore(t, nil, nil, 0)
	ctx := context.Background()

	store.AddItem(ctx, paracetamol)
	store.UpdateQuantity(ctx, "med-1", 5)
	store.UpdateQuantity(ctx, "ghost", 4)
	store.RemoveItem(ctx, "ghost")

	lines := store.Lines()
	if len(lines) != 1 || lines[0].Quantity != 5 {
		t.Fatalf("unexpected lines %+v", lines)
	}
}

func TestTotalsAreDerivedFromCurrentLines(t *testing.T) {
	store, _ := newTestStore(t, nil, nil, 0)
	ctx := context.Background()

	store.AddItem(ctx, paracetamol)
	store.AddItem(ctx, omeprazole)
	store.UpdateQuantity(ctx, "med-1", 2)
	store.UpdateQuantity(ctx, "legacy-7", 3)

	if got := store.TotalPrice(); got != 36.50 {
		t.Fatalf("expected total 36.50, got %v", got)
	}
	if got := store.ItemCount(); got != 5 {
		t.Fatalf("expected count 5, got %d", got)
	}
	if got := store.FormatPrice(store.TotalPrice()); got != "₹36.50" {
		t.Fatalf("unexpected formatted total %q", got)
	}

	summary := store.Summary()
	if summary.ItemCount != 5 || summary.FormattedTotal != "₹36.50" || len(summary.Lines) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	store.RemoveItem(ctx, "legacy-7")
	if got := store.TotalPrice(); got != 20 {
		t.Fatalf("expected total 20 after removal, got %v", got)
	}

	store.ClearCart(ctx)
	if store.TotalPrice() != 0 || store.ItemCount() != 0 {
		t.Fatal("expected zero totals on an empty cart")
	}
	if empty := store.Summary(); empty.Lines == nil || len(empty.Lines) != 0 {
		t.Fatalf("expected an empty, non-nil line list, got %#v", empty.Lines)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "₹0.00"},
		{4.5, "₹4.50"},
		{1234.567, "₹1234.57"},
	}
	for _, tt := range tests {
		if got := FormatPrice("₹", tt.amount); got != tt.want {
			t.Fatalf("FormatPrice(%v): expected %q, got %q", tt.amount, tt.want, got)
		}
	}
}

func TestSubscribeSeesEveryMutation(t *testing.T) {
	store, _ := newTestStore(t, nil, nil, 0)
	ctx := context.Background()

	var counts []int
	cancel := store.Subscribe(func(lines []cart.Line) { counts = append(counts, itemCount(lines)) })
	defer cancel()

	store.AddItem(ctx, paracetamol)
	store.AddItem(ctx, paracetamol)
	store.UpdateQuantity(ctx, "med-1", 7)
	store.ClearCart(ctx)

	if diff := cmp.Diff([]int{0, 1, 2, 7, 0}, counts); diff != "" {
		t.Fatalf("unexpected emissions (-want +got):\n%s", diff)
	}
}

func TestPersistedCartRoundTrip(t *testing.T) {
	blobs := blob.NewMemory()
	ctx := context.Background()

	first, _ := newTestStore(t, blobs, nil, 0)
	first.AddItem(ctx, omeprazole)
	first.AddItem(ctx, paracetamol)
	first.UpdateQuantity(ctx, "legacy-7", 4)

	second, _ := newTestStore(t, blobs, nil, 0)
	if diff := cmp.Diff(first.Lines(), second.Lines()); diff != "" {
		t.Fatalf("reloaded cart differs (-first +second):\n%s", diff)
	}
}

func TestLoadToleratesMalformedBlob(t *testing.T) {
	blobs := blob.NewMemory()
	ctx := context.Background()
	_ = blobs.Save(ctx, DefaultKey, []byte("{not json"))

	store, _ := newTestStore(t, blobs, nil, 0)
	if len(store.Lines()) != 0 {
		t.Fatalf("expected empty cart, got %+v", store.Lines())
	}

	store.AddItem(ctx, paracetamol)
	if len(store.Lines()) != 1 {
		t.Fatal("store should stay usable after a parse failure")
	}
}

func TestLoadToleratesReadFailure(t *testing.T) {
	store, _ := newTestStore(t, &failingBlobs{loadErr: errors.New("disk gone")}, nil, 0)
	if len(store.Lines()) != 0 {
		t.Fatal("expected empty cart on read failure")
	}
}

func TestLoadSanitizesLines(t *testing.T) {
	blobs := blob.NewMemory()
	raw := `[{"medicine":{"id":"a","name":"A","price":1},"quantity":1},` +
		`{"medicine":{"id":"b","name":"B","price":1},"quantity":0},` +
		`{"medicine":{"id":"a","name":"A","price":1},"quantity":2}]`
	_ = blobs.Save(context.Background(), DefaultKey, []byte(raw))

	store, _ := newTestStore(t, blobs, nil, 0)
	lines := store.Lines()
	if len(lines) != 1 || lines[0].Key != "a" || lines[0].Quantity != 3 {
		t.Fatalf("unexpected sanitized lines %+v", lines)
	}
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	blobs := &failingBlobs{saveErr: errors.New("quota exceeded")}
	store, _ := newTestStore(t, blobs, nil, 0)

	store.AddItem(context.Background(), paracetamol)

	if len(store.Lines()) != 1 {
		t.Fatal("in-memory mutation must survive a failed save")
	}
	if blobs.saves != 1 {
		t.Fatalf("expected exactly one save attempt, got %d", blobs.saves)
	}
}

func TestCheckoutPreconditionOrder(t *testing.T) {
	ctx := context.Background()

	anonymous, rec := newTestStore(t, nil, auth.Static{}, 0)
	if anonymous.Checkout(ctx, "12 MG Road") {
		t.Fatal("expected failure without a user")
	}
	if rec.lastNotice() != MsgLoginRequired {
		t.Fatalf("expected login notice first, got %q", rec.lastNotice())
	}

	empty, rec := newTestStore(t, nil, signedIn, 0)
	if empty.Checkout(ctx, "   ") {
		t.Fatal("expected failure on empty cart")
	}
	if rec.lastNotice() != MsgCartEmpty {
		t.Fatalf("expected empty-cart notice before address check, got %q", rec.lastNotice())
	}

	filled, rec := newTestStore(t, nil, signedIn, 0)
	filled.AddItem(ctx, paracetamol)
	if filled.Checkout(ctx, " \t ") {
		t.Fatal("expected failure on blank address")
	}
	if rec.lastNotice() != MsgAddressRequired {
		t.Fatalf("expected address notice, got %q", rec.lastNotice())
	}
	if len(filled.Lines()) != 1 {
		t.Fatal("failed checkout must not touch the cart")
	}
}

func TestCheckoutEmptyCartDoesNotMutate(t *testing.T) {
	blobs := &failingBlobs{}
	store, _ := newTestStore(t, blobs, signedIn, 0)

	if store.Checkout(context.Background(), "12 MG Road") {
		t.Fatal("expected false for empty cart")
	}
	if blobs.saves != 0 {
		t.Fatalf("expected no persistence, got %d saves", blobs.saves)
	}
}

func TestCheckoutSuccess(t *testing.T) {
	store, rec := newTestStore(t, nil, signedIn, 5*time.Millisecond)
	ctx := context.Background()

	store.AddItem(ctx, paracetamol)
	store.AddItem(ctx, paracetamol)
	store.AddItem(ctx, omeprazole)
	store.UpdateQuantity(ctx, "legacy-7", 3)

	start := time.Now()
	if !store.Checkout(ctx, "  12 MG Road, Bengaluru ") {
		t.Fatal("expected checkout to succeed")
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatal("checkout returned before the processing delay")
	}
	if len(store.Lines()) != 0 {
		t.Fatal("expected empty cart after checkout")
	}

	if len(rec.receipts) != 1 {
		t.Fatalf("expected one receipt, got %d", len(rec.receipts))
	}
	want := notify.Receipt{
		Recipient: "Asha",
		Address:   "12 MG Road, Bengaluru",
		Items:     5,
		Total:     "₹36.50",
		Email:     "asha@example.com",
	}
	got := rec.receipts[0]
	got.Message = ""
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected receipt (-want +got):\n%s", diff)
	}
	if rec.receipts[0].Message == "" {
		t.Fatal("expected confirmation text")
	}
}

func TestCheckoutSupersededByClear(t *testing.T) {
	store, rec := newTestStore(t, nil, signedIn, 200*time.Millisecond)
	ctx := context.Background()
	store.AddItem(ctx, paracetamol)

	result := make(chan bool, 1)
	go func() { result <- store.Checkout(ctx, "12 MG Road") }()

	time.Sleep(20 * time.Millisecond)
	store.ClearCart(ctx)
	store.AddItem(ctx, omeprazole)

	if <-result {
		t.Fatal("checkout should not apply after a reset")
	}
	if rec.lastNotice() != MsgCartChanged {
		t.Fatalf("expected cart-changed notice, got %q", rec.lastNotice())
	}
	if len(store.Lines()) != 1 || store.Lines()[0].Key != "legacy-7" {
		t.Fatalf("items added after the reset must survive, got %+v", store.Lines())
	}
	if len(rec.receipts) != 0 {
		t.Fatal("no receipt expected")
	}
}

func TestCheckoutSupersededWhenCartEmptied(t *testing.T) {
	cases := []struct {
		name  string
		empty func(ctx context.Context, store *Store)
	}{
		{"remove", func(ctx context.Context, store *Store) { store.RemoveItem(ctx, "med-1") }},
		{"zero quantity", func(ctx context.Context, store *Store) { store.UpdateQuantity(ctx, "med-1", 0) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, rec := newTestStore(t, nil, signedIn, 50*time.Millisecond)
			ctx := context.Background()
			store.AddItem(ctx, paracetamol)

			result := make(chan bool, 1)
			go func() { result <- store.Checkout(ctx, "12 MG Road") }()

			time.Sleep(10 * time.Millisecond)
			tc.empty(ctx, store)

			if <-result {
				t.Fatal("checkout must not place an order for an emptied cart")
			}
			if rec.lastNotice() != MsgCartChanged {
				t.Fatalf("expected cart-changed notice, got %q", rec.lastNotice())
			}
			rec.mu.Lock()
			receipts := len(rec.receipts)
			rec.mu.Unlock()
			if receipts != 0 {
				t.Fatalf("expected no receipt, got %d", receipts)
			}
		})
	}
}

func TestCheckoutKeepsGoingWhenOtherLinesRemain(t *testing.T) {
	store, rec := newTestStore(t, nil, signedIn, 50*time.Millisecond)
	ctx := context.Background()
	store.AddItem(ctx, paracetamol)
	store.AddItem(ctx, omeprazole)

	result := make(chan bool, 1)
	go func() { result <- store.Checkout(ctx, "12 MG Road") }()

	time.Sleep(10 * time.Millisecond)
	store.RemoveItem(ctx, "med-1")

	if !<-result {
		t.Fatalf("expected order for remaining lines, notice %q", rec.lastNotice())
	}
	if got := rec.receipts[0]; got.Items != 1 || got.Total != "₹5.50" {
		t.Fatalf("receipt should reflect the cart at completion, got %+v", got)
	}
}

func TestOverlappingCheckoutsPlaceOneOrder(t *testing.T) {
	store, rec := newTestStore(t, nil, signedIn, 20*time.Millisecond)
	ctx := context.Background()
	store.AddItem(ctx, paracetamol)

	var wg sync.WaitGroup
	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.Checkout(ctx, "12 MG Road")
		}()
	}
	wg.Wait()
	close(results)

	placed := 0
	for ok := range results {
		if ok {
			placed++
		}
	}
	if placed != 1 {
		t.Fatalf("expected exactly one placed order, got %d", placed)
	}
	if len(rec.receipts) != 1 {
		t.Fatalf("expected one receipt, got %d", len(rec.receipts))
	}
}

func TestCheckoutSurvivesCanceledContext(t *testing.T) {
	store, rec := newTestStore(t, nil, signedIn, 50*time.Millisecond)
	store.AddItem(context.Background(), paracetamol)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if !store.Checkout(ctx, "12 MG Road") {
		t.Fatalf("validated checkout should complete after cancel, notice %q", rec.lastNotice())
	}
	if len(store.Lines()) != 0 {
		t.Fatalf("expected cart cleared, got %+v", store.Lines())
	}
	if len(rec.receipts) != 1 {
		t.Fatalf("expected one receipt, got %d", len(rec.receipts))
	}
}

func TestCloseReleasesPendingCheckout(t *testing.T) {
	rec := &recorder{}
	store := NewStore(context.Background(), Options{CheckoutDelay: time.Hour}, nil, signedIn, rec, nil)
	store.AddItem(context.Background(), paracetamol)

	result := make(chan bool, 1)
	go func() { result <- store.Checkout(context.Background(), "12 MG Road") }()

	time.Sleep(10 * time.Millisecond)
	store.Close()
	store.Close()

	select {
	case ok := <-result:
		if ok {
			t.Fatal("expected false after close")
		}
	case <-time.After(time.Second):
		t.Fatal("checkout did not return after close")
	}
}
