// Package checkout submits the cart to the ledger as one bill.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"billdesk/m/domain"
	"billdesk/m/internal/cart"
)

var (
	ErrEmptyCart        = fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	ErrCheckoutInFlight = errors.New("checkout already in progress")
)

type State int32

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// Submitter sends a bill to the ledger.
type Submitter interface {
	Checkout(ctx context.Context, req domain.CheckoutRequest, idempotencyKey string) (domain.CheckoutResponse, error)
}

// Observer hears how each submitted checkout ended.
type Observer interface {
	CheckoutSucceeded(res domain.CheckoutResponse)
	CheckoutFailed(err error)
}

type outcome struct {
	res domain.CheckoutResponse
	err error
}

// Workflow runs Idle -> Submitting -> Idle, allowing one submission at a time.
type Workflow struct {
	store     *cart.Store
	submitter Submitter
	timeout   time.Duration
	observer  Observer
	state     atomic.Int32

	// pending is the key of the last failed submission and the snapshot it
	// was sent with. Only touched while Submitting.
	pending    string
	pendingReq domain.CheckoutRequest
}

func New(store *cart.Store, submitter Submitter, timeout time.Duration, observer Observer) *Workflow {
	return &Workflow{store: store, submitter: submitter, timeout: timeout, observer: observer}
}

func (w *Workflow) State() State {
	return State(w.state.Load())
}

// Submit checks out a snapshot of the cart. An empty cart or a submission
// already in flight returns an error without contacting the ledger. On success
// the cart is cleared; on any failure it is left as it was, and resubmitting
// it unchanged reuses the failed attempt's idempotency key.
func (w *Workflow) Submit(ctx context.Context) (domain.CheckoutResponse, error) {
	if w.store.Len() == 0 {
		return domain.CheckoutResponse{}, ErrEmptyCart
	}
	if !w.state.CompareAndSwap(int32(Idle), int32(Submitting)) {
		return domain.CheckoutResponse{}, ErrCheckoutInFlight
	}

	req := w.store.Snapshot()
	if len(req.Items) == 0 {
		w.state.Store(int32(Idle))
		return domain.CheckoutResponse{}, ErrEmptyCart
	}

	key := w.keyFor(req)
	res, err := w.send(ctx, req, key)
	if err == nil && !res.Succeeded() {
		msg := res.Error
		if msg == "" {
			msg = res.Message
		}
		err = &domain.BackendRejection{Op: "checkout", Message: msg}
	}
	if err != nil {
		w.state.Store(int32(Idle))
		log.Printf("checkout failed: %v", err)
		if w.observer != nil {
			w.observer.CheckoutFailed(err)
		}
		return res, err
	}

	w.pending, w.pendingReq = "", domain.CheckoutRequest{}
	w.store.Clear()
	w.state.Store(int32(Idle))
	if w.observer != nil {
		w.observer.CheckoutSucceeded(res)
	}
	return res, nil
}

// send gives up after the workflow timeout even if the submitter does not
// honour its context.
func (w *Workflow) send(ctx context.Context, req domain.CheckoutRequest, key string) (domain.CheckoutResponse, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		res, err := w.submitter.Checkout(ctx, req, key)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		select {
		case out := <-done:
			return out.res, out.err
		default:
		}
		return domain.CheckoutResponse{}, &domain.TransportError{Op: "checkout", Err: ctx.Err()}
	}
}

// keyFor returns the idempotency key for req: the pending key while the same
// snapshot is retried, a new one otherwise.
func (w *Workflow) keyFor(req domain.CheckoutRequest) string {
	if w.pending == "" || !sameItems(w.pendingReq, req) {
		w.pending, w.pendingReq = uuid.NewString(), req
	}
	return w.pending
}

func sameItems(a, b domain.CheckoutRequest) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		x, y := a.Items[i], b.Items[i]
		if x.ProductID != y.ProductID || x.Qty != y.Qty || !x.UnitPrice.Equal(y.UnitPrice) {
			return false
		}
	}
	return true
}
