package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billdesk/m/domain"
	"billdesk/m/internal/cart"
)

type submitterMock struct {
	mu    sync.Mutex
	calls int
	reqs  []domain.CheckoutRequest
	keys  []string
	res   domain.CheckoutResponse
	err   error
	gate  chan struct{}
}

func (s *submitterMock) Checkout(ctx context.Context, req domain.CheckoutRequest, key string) (domain.CheckoutResponse, error) {
	s.mu.Lock()
	s.calls++
	s.reqs = append(s.reqs, req)
	s.keys = append(s.keys, key)
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return s.res, s.err
}

func (s *submitterMock) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type observerMock struct {
	succeeded []domain.CheckoutResponse
	failed    []error
}

func (o *observerMock) CheckoutSucceeded(res domain.CheckoutResponse) { o.succeeded = append(o.succeeded, res) }
func (o *observerMock) CheckoutFailed(err error)                      { o.failed = append(o.failed, err) }

func penAndBook(t *testing.T) *cart.Store {
	s := cart.New()
	ringUp(t, s)
	return s
}

func ringUp(t *testing.T, s *cart.Store) {
	pen := domain.ProductSearchResult{ID: "P1", Name: "Pen", SellingPrice: "10"}
	require.NoError(t, s.AddOrIncrement(pen))
	require.NoError(t, s.AddOrIncrement(pen))
	require.NoError(t, s.AddOrIncrement(domain.ProductSearchResult{ID: "P2", Name: "Book", SellingPrice: "50.5"}))
}

var success = domain.CheckoutResponse{Message: domain.CheckoutMessageSuccess, BillNo: "BILL-20250314-0001"}

func TestSubmit_EmptyCartNeverCallsBackend(t *testing.T) {
	sub := &submitterMock{res: success}
	obs := &observerMock{}
	store := cart.New()
	w := New(store, sub, time.Second, obs)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, sub.callCount())
	assert.Zero(t, store.Len())
	assert.Empty(t, obs.succeeded)
	assert.Empty(t, obs.failed)
	assert.Equal(t, Idle, w.State())
}

func TestSubmit_SuccessClearsCart(t *testing.T) {
	sub := &submitterMock{res: success}
	obs := &observerMock{}
	store := penAndBook(t)
	w := New(store, sub, time.Second, obs)

	res, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BILL-20250314-0001", res.BillNo)
	assert.Zero(t, store.Len())
	assert.Equal(t, []domain.CheckoutResponse{success}, obs.succeeded)
	assert.Empty(t, obs.failed)
	assert.Equal(t, Idle, w.State())

	require.Len(t, sub.reqs, 1)
	assert.Equal(t, []domain.CheckoutItem{
		{ProductID: "P1", Qty: 2, UnitPrice: decimal.RequireFromString("10")},
		{ProductID: "P2", Qty: 1, UnitPrice: decimal.RequireFromString("50.5")},
	}, sub.reqs[0].Items)
	_, err = uuid.Parse(sub.keys[0])
	assert.NoError(t, err)
}

func TestSubmit_RejectionKeepsCart(t *testing.T) {
	sub := &submitterMock{res: domain.CheckoutResponse{Message: "error", Error: "out of stock"}}
	obs := &observerMock{}
	store := penAndBook(t)
	w := New(store, sub, time.Second, obs)

	_, err := w.Submit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRejected)

	var rej *domain.BackendRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "out of stock", rej.Message)

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Empty(t, obs.succeeded)
	require.Len(t, obs.failed, 1)
	assert.Equal(t, Idle, w.State())
}

func TestSubmit_TransportFailureKeepsCart(t *testing.T) {
	sub := &submitterMock{err: &domain.TransportError{Op: "checkout", Err: errors.New("connection refused")}}
	store := penAndBook(t)
	w := New(store, sub, time.Second, nil)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, Idle, w.State())
}

func TestSubmit_SecondTriggerWhileSubmittingIsIgnored(t *testing.T) {
	sub := &submitterMock{res: success, gate: make(chan struct{})}
	obs := &observerMock{}
	store := penAndBook(t)
	w := New(store, sub, time.Second, obs)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return sub.callCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, Submitting, w.State())

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrCheckoutInFlight)

	close(sub.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sub.callCount())
	assert.Len(t, obs.succeeded, 1)
	assert.Equal(t, Idle, w.State())
}

func TestSubmit_SnapshotIgnoresMutationsInFlight(t *testing.T) {
	sub := &submitterMock{res: success, gate: make(chan struct{})}
	store := penAndBook(t)
	w := New(store, sub, time.Second, nil)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return sub.callCount() == 1 }, time.Second, time.Millisecond)

	store.SetQuantity("P1", "40")
	store.Remove("P2")
	close(sub.gate)
	require.NoError(t, <-done)

	sub.mu.Lock()
	defer sub.mu.Unlock()
	require.Len(t, sub.reqs[0].Items, 2)
	assert.Equal(t, 2, sub.reqs[0].Items[0].Qty)
}

func TestSubmit_TimeoutFailsWithoutHanging(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	sub := &submitterMock{res: success, gate: gate}
	obs := &observerMock{}
	store := penAndBook(t)
	w := New(store, sub, 20*time.Millisecond, obs)

	start := time.Now()
	_, err := w.Submit(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, store.Len())
	assert.Len(t, obs.failed, 1)
	assert.Equal(t, Idle, w.State())
}

// slowLedger commits every bill it receives, keyed like the real ledger, but
// answers only after the caller has given up.
type slowLedger struct {
	mu    sync.Mutex
	bills map[string]bool
	delay time.Duration
}

func (l *slowLedger) Checkout(ctx context.Context, req domain.CheckoutRequest, key string) (domain.CheckoutResponse, error) {
	l.mu.Lock()
	l.bills[key] = true
	l.mu.Unlock()
	time.Sleep(l.delay)
	return success, nil
}

func (l *slowLedger) committed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bills)
}

func TestSubmit_RetryAfterTimeoutReusesKey(t *testing.T) {
	ledger := &slowLedger{bills: map[string]bool{}, delay: 100 * time.Millisecond}
	store := penAndBook(t)
	w := New(store, ledger, 10*time.Millisecond, nil)

	for i := 0; i < 2; i++ {
		_, err := w.Submit(context.Background())
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 1, ledger.committed())
}

func TestSubmit_RetryOfUnchangedCartReusesKey(t *testing.T) {
	sub := &submitterMock{err: &domain.TransportError{Op: "checkout", Err: errors.New("connection reset")}}
	store := penAndBook(t)
	w := New(store, sub, time.Second, nil)

	for i := 0; i < 3; i++ {
		_, err := w.Submit(context.Background())
		require.Error(t, err)
	}
	require.Len(t, sub.keys, 3)
	assert.Equal(t, sub.keys[0], sub.keys[1])
	assert.Equal(t, sub.keys[0], sub.keys[2])
}

func TestSubmit_ChangedCartGetsNewKey(t *testing.T) {
	sub := &submitterMock{err: errors.New("down")}
	store := penAndBook(t)
	w := New(store, sub, time.Second, nil)

	_, err := w.Submit(context.Background())
	require.Error(t, err)
	store.SetQuantity("P1", "3")
	_, err = w.Submit(context.Background())
	require.Error(t, err)

	require.Len(t, sub.keys, 2)
	assert.NotEqual(t, sub.keys[0], sub.keys[1])
}

func TestSubmit_KeyRenewedAfterSuccess(t *testing.T) {
	sub := &submitterMock{err: errors.New("down")}
	store := penAndBook(t)
	w := New(store, sub, time.Second, nil)

	_, err := w.Submit(context.Background())
	require.Error(t, err)

	sub.mu.Lock()
	sub.err, sub.res = nil, success
	sub.mu.Unlock()
	_, err = w.Submit(context.Background())
	require.NoError(t, err)

	// The same goods rung up again are a new bill.
	ringUp(t, store)
	_, err = w.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, sub.keys, 3)
	assert.Equal(t, sub.keys[0], sub.keys[1])
	assert.NotEqual(t, sub.keys[1], sub.keys[2])
}
