package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/payment"
	"github.com/fjod/undhyu/internal/storage"
	"github.com/fjod/undhyu/internal/validator"
	"github.com/shopspring/decimal"
)

// CustomerStorageKey is where the delivery form is kept between sessions.
const CustomerStorageKey = "undhyu-customer"

const (
	msgInitiateFailed = "Failed to initiate payment. Please try again."
	msgCancelled      = "Payment cancelled. You can try again anytime."
	msgSucceeded      = "Payment successful! Your order has been placed."
)

// Cart is the live cart a checkout snapshots and clears.
type Cart interface {
	Items() []domain.LineItem
	Clear(ctx context.Context) error
}

type OrderRecorder interface {
	Append(ctx context.Context, order domain.Order) error
}

type CustomerValidator interface {
	Validate(info domain.CustomerInfo) map[string]string
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithOrderIDs(gen func(time.Time) string) Option {
	return func(o *Orchestrator) { o.newOrderID = gen }
}

func WithValidator(v CustomerValidator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithPaymentTimeout bounds each gateway call.
func WithPaymentTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.paymentTimeout = d }
}

// WithCustomerStorage keeps the delivery form across sessions and restarts.
func WithCustomerStorage(st storage.Store) Option {
	return func(o *Orchestrator) { o.customerStore = st }
}

// Orchestrator drives one shopper's checkout through its payment states.
// The mutex is never held across a gateway call: the transition is committed
// first and the result is applied only if the session is still current.
type Orchestrator struct {
	mu sync.Mutex

	cart           Cart
	gateway        payment.Gateway
	history        OrderRecorder
	validator      CustomerValidator
	customerStore  storage.Store
	now            func() time.Time
	newOrderID     func(time.Time) string
	paymentTimeout time.Duration

	state    domain.PaymentState
	inFlight bool
	session  uint64

	items       []domain.LineItem
	buyNow      bool
	customer    domain.CustomerInfo
	fieldErrors map[string]string
	orderID     string
	total       decimal.Decimal
	amount      int64
	intent      *payment.Intent
	paymentID   string
	message     string
}

func New(cart Cart, gateway payment.Gateway, history OrderRecorder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cart:        cart,
		gateway:     gateway,
		history:     history,
		validator:   validator.New(),
		now:         time.Now,
		newOrderID:  NewOrderID,
		state:       domain.PaymentStateIdle,
		customer:    domain.NewCustomerInfo(),
		fieldErrors: map[string]string{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LoadCustomer restores the delivery form saved by a previous session.
func (o *Orchestrator) LoadCustomer(ctx context.Context) error {
	if o.customerStore == nil {
		return nil
	}
	raw, err := o.customerStore.Get(ctx, CustomerStorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load customer info: %w", err)
	}

	info := domain.NewCustomerInfo()
	if err := json.Unmarshal(raw, &info); err != nil {
		logger.Warn("Discarding unreadable customer info", map[string]interface{}{"error": err.Error()})
		return nil
	}
	info.Country = domain.DefaultCountry

	o.mu.Lock()
	o.customer = info
	o.mu.Unlock()
	return nil
}

// StartCheckout snapshots items, or the live cart when items is empty, and
// opens the delivery form.
func (o *Orchestrator) StartCheckout(ctx context.Context, items []domain.LineItem) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	if len(items) == 0 {
		items = o.cart.Items()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.startLocked(items, false)
}

// BuyNow starts a checkout for one unit of product without touching the cart.
// An empty variantID buys the first variant.
func (o *Orchestrator) BuyNow(ctx context.Context, product domain.Product, variantID string) error {
	variant, err := product.SelectVariant(variantID)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.startLocked([]domain.LineItem{product.LineFor(variant, 1)}, true)
}

func (o *Orchestrator) startLocked(items []domain.LineItem, buyNow bool) error {
	if o.inFlight {
		return domain.ErrPaymentInFlight
	}
	if len(items) == 0 {
		return domain.ErrEmptyCart
	}
	if err := o.transitionLocked(domain.PaymentStateCollectingInfo); err != nil {
		return err
	}

	o.session++
	o.items = domain.CloneItems(items)
	o.buyNow = buyNow
	o.fieldErrors = map[string]string{}
	o.total = domain.TotalOf(o.items)
	o.amount = 0
	o.orderID = ""
	o.intent = nil
	o.paymentID = ""
	o.message = ""

	logger.Debug("Checkout started", map[string]interface{}{
		"items":   len(o.items),
		"buy_now": buyNow,
		"total":   o.total.String(),
	})
	return nil
}

// EditField sets one delivery field and clears that field's error only.
func (o *Orchestrator) EditField(ctx context.Context, field, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != domain.PaymentStateCollectingInfo {
		return domain.ErrIllegalTransition
	}
	if err := o.customer.Set(field, value); err != nil {
		return err
	}
	delete(o.fieldErrors, field)
	o.saveCustomerLocked(ctx)
	return nil
}

// SetCustomer replaces the form. Errors are cleared for changed fields only.
func (o *Orchestrator) SetCustomer(ctx context.Context, info domain.CustomerInfo) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != domain.PaymentStateCollectingInfo {
		return domain.ErrIllegalTransition
	}

	info.Country = domain.DefaultCountry
	before := o.customer.Fields()
	for field, value := range info.Fields() {
		if before[field] != value {
			delete(o.fieldErrors, field)
		}
	}
	o.customer = info
	o.saveCustomerLocked(ctx)
	return nil
}

// Submit validates the form and asks the gateway for a payment intent. The
// amount is fixed here from the snapshot and never recomputed.
func (o *Orchestrator) Submit(ctx context.Context) (*payment.Intent, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, domain.ErrPaymentInFlight
	}
	if o.state != domain.PaymentStateCollectingInfo {
		o.mu.Unlock()
		return nil, domain.ErrIllegalTransition
	}

	if errs := o.validator.Validate(o.customer); len(errs) > 0 {
		o.fieldErrors = errs
		o.mu.Unlock()
		return nil, &domain.ValidationError{Fields: copyErrors(errs)}
	}

	o.fieldErrors = map[string]string{}
	o.total = domain.TotalOf(o.items)
	o.amount = domain.ToMinorUnits(o.total)
	o.orderID = o.newOrderID(o.now())
	o.message = ""
	if err := o.transitionLocked(domain.PaymentStateAwaitingGatewayResult); err != nil {
		o.mu.Unlock()
		return nil, err
	}

	session := o.session
	req := payment.CreateRequest{
		OrderID:  o.orderID,
		Amount:   o.amount,
		Currency: domain.CurrencyINR,
		Items:    domain.CloneItems(o.items),
		Customer: o.customer,
	}
	o.mu.Unlock()

	callCtx, cancel := o.callContext(ctx)
	intent, err := o.gateway.CreateIntent(callCtx, req)
	cancel()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != session {
		return nil, ErrSessionClosed
	}
	if err != nil {
		o.setStateLocked(domain.PaymentStateCollectingInfo)
		o.message = msgInitiateFailed
		logger.WithContext(ctx).WithError(err).WithField("order_id", req.OrderID).Error("Failed to create payment intent")
		return nil, &domain.GatewayError{Op: "create intent", Err: err}
	}

	o.intent = intent
	logger.WithContext(ctx).WithField("order_id", req.OrderID).WithField("amount", req.Amount).Info("Payment intent created")
	copied := *intent
	return &copied, nil
}

// Resolve applies one event from the payment widget.
func (o *Orchestrator) Resolve(ctx context.Context, result payment.Result) (View, error) {
	o.mu.Lock()
	if o.state != domain.PaymentStateAwaitingGatewayResult {
		o.mu.Unlock()
		return o.View(), domain.ErrIllegalTransition
	}
	if o.intent != nil && result.GatewayOrderID != "" && result.GatewayOrderID != o.intent.GatewayOrderID {
		o.mu.Unlock()
		return o.View(), ErrResultMismatch
	}

	switch result.Kind {
	case payment.ResultDismissed:
		o.setStateLocked(domain.PaymentStateCancelled)
		o.message = msgCancelled
		o.mu.Unlock()
		return o.View(), nil

	case payment.ResultAuthorized:
		if result.PaymentID != "" {
			break
		}
		result.Reason = "missing payment id"
		fallthrough

	default:
		o.setStateLocked(domain.PaymentStateCancelled)
		reason := result.Reason
		if reason == "" {
			reason = "payment failed"
		}
		o.message = "Payment failed: " + reason
		o.mu.Unlock()
		return o.View(), &domain.GatewayError{Op: "payment", Err: errors.New(reason)}
	}

	o.paymentID = result.PaymentID
	o.setStateLocked(domain.PaymentStateVerifying)
	session := o.session
	snapshot := domain.CloneItems(o.items)
	customer := o.customer
	buyNow := o.buyNow
	order := domain.Order{
		ID:        o.orderID,
		Items:     snapshot,
		Customer:  customer,
		Total:     o.total,
		Status:    domain.OrderStatusConfirmed,
		PaymentID: result.PaymentID,
	}
	gatewayOrderID := result.GatewayOrderID
	if gatewayOrderID == "" && o.intent != nil {
		gatewayOrderID = o.intent.GatewayOrderID
	}
	o.mu.Unlock()

	callCtx, cancel := o.callContext(ctx)
	verification, err := o.gateway.Verify(callCtx, payment.VerifyRequest{
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrderID,
		PaymentID:      result.PaymentID,
		Signature:      result.Signature,
		Items:          snapshot,
		Customer:       customer,
	})
	cancel()

	if err == nil && verification.Success {
		order.Date = o.now().UTC()
		o.complete(ctx, order, buyNow)

		o.mu.Lock()
		if o.session == session {
			o.setStateLocked(domain.PaymentStateSucceeded)
			o.customer = domain.NewCustomerInfo()
			o.message = msgSucceeded
		}
		o.mu.Unlock()
		return o.View(), nil
	}

	o.mu.Lock()
	if o.session != session {
		o.mu.Unlock()
		return o.View(), ErrSessionClosed
	}
	o.setStateLocked(domain.PaymentStateFailed)
	o.message = "Payment verification failed. Please contact support with your payment ID: " + result.PaymentID
	o.mu.Unlock()

	if err == nil {
		err = errors.New("payment was not confirmed")
	}
	logger.WithContext(ctx).WithError(err).WithField("payment_id", result.PaymentID).Warn("Payment verification failed")
	return o.View(), &domain.VerificationError{PaymentID: result.PaymentID, Err: err}
}

// complete runs the side effects of a verified payment. The payment is
// captured at this point, so storage failures are logged and do not undo it.
func (o *Orchestrator) complete(ctx context.Context, order domain.Order, buyNow bool) {
	if !buyNow {
		if err := o.cart.Clear(ctx); err != nil {
			logger.WithContext(ctx).WithError(err).WithField("order_id", order.ID).Error("Failed to clear cart after payment")
		}
	}
	if err := o.history.Append(ctx, order); err != nil {
		logger.WithContext(ctx).WithError(err).WithField("order_id", order.ID).Error("Failed to record order")
	}
	if o.customerStore != nil {
		if err := o.customerStore.Delete(ctx, CustomerStorageKey); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("Failed to clear saved customer info")
		}
	}
	logger.WithContext(ctx).WithFields(map[string]interface{}{
		"order_id":   order.ID,
		"payment_id": order.PaymentID,
		"total":      order.Total.String(),
	}).Info("Order confirmed")
}

// Await waits for the widget's result and applies it. A cancelled context or
// a closed stream counts as dismissal.
func (o *Orchestrator) Await(ctx context.Context, results <-chan payment.Result) (View, error) {
	select {
	case <-ctx.Done():
		return o.Resolve(context.Background(), payment.Result{Kind: payment.ResultDismissed})
	case res, ok := <-results:
		if !ok {
			return o.Resolve(ctx, payment.Result{Kind: payment.ResultDismissed})
		}
		return o.Resolve(ctx, res)
	}
}

// Cancel returns to Idle and discards the snapshot. Results still outstanding
// for the discarded session are ignored. A captured payment under
// verification cannot be abandoned: Cancel returns ErrPaymentInFlight until
// verification settles.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == domain.PaymentStateVerifying {
		return domain.ErrPaymentInFlight
	}

	o.session++
	o.setStateLocked(domain.PaymentStateIdle)
	o.items = nil
	o.buyNow = false
	o.fieldErrors = map[string]string{}
	o.total = decimal.Zero
	o.amount = 0
	o.orderID = ""
	o.intent = nil
	o.paymentID = ""
	o.message = ""
	return nil
}

func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	var intent *payment.Intent
	if o.intent != nil {
		copied := *o.intent
		intent = &copied
	}
	return View{
		State:     o.state,
		InFlight:  o.inFlight,
		Items:     domain.CloneItems(o.items),
		BuyNow:    o.buyNow,
		Customer:  o.customer,
		Errors:    copyErrors(o.fieldErrors),
		OrderID:   o.orderID,
		Total:     o.total,
		Amount:    o.amount,
		Intent:    intent,
		PaymentID: o.paymentID,
		Message:   o.message,
	}
}

func (o *Orchestrator) State() domain.PaymentState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

func (o *Orchestrator) transitionLocked(to domain.PaymentState) error {
	if !domain.CanTransitionTo(o.state, to) {
		return fmt.Errorf("%w: %s to %s", domain.ErrIllegalTransition, o.state, to)
	}
	o.setStateLocked(to)
	return nil
}

// setStateLocked is the only writer of state and inFlight, which keeps the
// flag equal to state.PaymentInFlight().
func (o *Orchestrator) setStateLocked(to domain.PaymentState) {
	o.state = to
	o.inFlight = to.PaymentInFlight()
}

func (o *Orchestrator) saveCustomerLocked(ctx context.Context) {
	if o.customerStore == nil {
		return
	}
	data, err := json.Marshal(o.customer)
	if err != nil {
		return
	}
	if err := o.customerStore.Set(ctx, CustomerStorageKey, data); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Failed to save customer info")
	}
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.paymentTimeout > 0 {
		return context.WithTimeout(ctx, o.paymentTimeout)
	}
	return context.WithCancel(ctx)
}

func copyErrors(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
