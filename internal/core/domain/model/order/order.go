package order

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or RestoreOrder")

	ErrNotYetPrepared           = errors.New("not yet prepared")
	ErrInStoreOrder             = errors.New("in-store orders have no pickup or delivery")
	ErrDriverAlreadyAssigned    = errors.New("driver already assigned")
	ErrNotGivenByStore          = errors.New("order was not last advanced by the store")
	ErrPhaseNotRunning          = errors.New("phase is not running")
	ErrFeedbackAlreadySubmitted = errors.New("feedback already submitted")
)

// Details are the caller supplied attributes of a new order.
type Details struct {
	Name        string
	Customer    Customer
	Store       kernel.UUID
	Amount      kernel.Money
	DeliveryFee kernel.Money
	IsTakeout   bool
	Items       []Item
}

// Order is the aggregate root of the order lifecycle. It owns the status,
// the driver assignment and the three phase timers, and is the only place
// where they change.
//
// Order follows these invariants:
//   - status moves forward along the graph documented on Status
//   - driver is nil until a driver accepts and never changes afterwards
//   - in-store orders (isTakeout == false) never start pickup or deliver
//   - a phase estimate is never moved before the time of the adjustment
//   - feedback is written at most once, and only on received orders
//
// Every mutating method either succeeds completely or leaves the order untouched.
type Order struct {
	id          kernel.UUID
	name        string
	customer    Customer
	store       kernel.UUID
	driver      *kernel.UUID
	amount      kernel.Money
	deliveryFee kernel.Money
	paid        bool
	isTakeout   bool
	items       []Item
	status      Status
	stateGiven  StateGiven
	datePlaced  time.Time
	prepare     PhaseTimer
	pickup      PhaseTimer
	deliver     PhaseTimer
	feedback    *Feedback

	// version is the optimistic concurrency token; it starts at 1 and is
	// advanced by the repository on every persisted change.
	version int64

	guard guard.ConstructorGuard
}

// NewOrder places a new order. A blank name defaults to a short code derived from id.
//
// Example:
//
//	amount, _ := kernel.NewMoney(250000, kernel.IRT)
//	fee, _ := kernel.NewMoney(30000, kernel.IRT)
//	o, err := order.NewOrder(kernel.NewUUID(), order.Details{
//	    Customer:    customer,
//	    Store:       storeID,
//	    Amount:      amount,
//	    DeliveryFee: fee,
//	    IsTakeout:   true,
//	    Items:       items,
//	}, time.Now())
func NewOrder(id kernel.UUID, details Details, placedAt time.Time) (*Order, error) {
	o := &Order{
		status:  Placed,
		version: 1,
		guard:   guard.NewConstructorGuard(),
	}

	if strings.TrimSpace(details.Name) == "" && id.Validate() == nil {
		details.Name = "#" + strings.ToUpper(id.String()[:8])
	}

	if err := errors.Join(
		o.setID(id),
		o.setDetails(details),
		o.setDatePlaced(placedAt),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Snapshot is the full persisted state of an order.
type Snapshot struct {
	ID         kernel.UUID
	Details    Details
	Driver     *kernel.UUID
	Paid       bool
	Status     Status
	StateGiven StateGiven
	DatePlaced time.Time
	Prepare    PhaseTimer
	Pickup     PhaseTimer
	Deliver    PhaseTimer
	Feedback   *Feedback
	Version    int64
}

// RestoreOrder rebuilds an order from storage and checks that the stored
// state is one the lifecycle can produce.
func RestoreOrder(s Snapshot) (*Order, error) {
	o := &Order{
		guard:    guard.NewConstructorGuard(),
		paid:     s.Paid,
		prepare:  s.Prepare,
		pickup:   s.Pickup,
		deliver:  s.Deliver,
		feedback: s.Feedback,
	}

	if err := errors.Join(
		o.setID(s.ID),
		o.setDetails(s.Details),
		o.setDatePlaced(s.DatePlaced),
		o.setStatus(s.Status, s.StateGiven),
		o.setVersion(s.Version),
	); err != nil {
		return nil, err
	}

	if err := errors.Join(
		o.setDriver(s.Driver),
		o.checkFeedback(),
	); err != nil {
		return nil, err
	}

	return o, nil
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setDetails(d Details) error {
	var errList []error

	name := strings.TrimSpace(d.Name)
	if name == "" {
		errList = append(errList, errs.NewValueIsRequiredError("name"))
	}
	if d.Customer.Name() == "" {
		errList = append(errList, errs.NewValueIsRequiredError("customer"))
	}
	if err := d.Store.Validate(); err != nil {
		errList = append(errList, errs.NewValueIsRequiredErrorWithCause("store", err))
	}
	errList = append(errList, d.Amount.Validate(), d.DeliveryFee.Validate())
	if d.Amount.Validate() == nil && d.DeliveryFee.Validate() == nil && !d.Amount.SameCurrency(d.DeliveryFee) {
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause(
			"deliveryFee",
			fmt.Errorf("currency %s differs from amount currency %s", d.DeliveryFee.Currency(), d.Amount.Currency()),
		))
	}
	if !d.IsTakeout && d.DeliveryFee.Amount() != 0 {
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause("deliveryFee", ErrInStoreOrder))
	}
	if len(d.Items) == 0 {
		errList = append(errList, errs.NewValueIsRequiredError("items"))
	}
	for i, item := range d.Items {
		if item.Quantity() <= 0 || item.Name() == "" {
			errList = append(errList, errs.NewValueIsInvalidErrorWithCause("items", fmt.Errorf("item %d was not built by NewItem", i)))
		}
	}

	if err := errors.Join(errList...); err != nil {
		return err
	}

	o.name = name
	o.customer = d.Customer
	o.store = d.Store
	o.amount = d.Amount
	o.deliveryFee = d.DeliveryFee
	o.isTakeout = d.IsTakeout
	o.items = slices.Clone(d.Items)
	return nil
}

func (o *Order) setDatePlaced(t time.Time) error {
	if t.IsZero() {
		return errs.NewValueIsRequiredError("datePlaced")
	}
	o.datePlaced = t
	return nil
}

func (o *Order) setStatus(s Status, sg StateGiven) error {
	if err := errors.Join(s.Validate(), sg.Validate()); err != nil {
		return err
	}
	o.status = s
	o.stateGiven = sg
	return nil
}

func (o *Order) setVersion(v int64) error {
	if v < 1 {
		return errs.NewVersionIsInvalidErrorWithCause("version", fmt.Errorf("%d is less than 1", v))
	}
	o.version = v
	return nil
}

// setDriver checks the stored driver against status and order type.
func (o *Order) setDriver(driver *kernel.UUID) error {
	if driver == nil {
		//nolint:exhaustive // only these statuses require a driver
		switch o.status {
		case AcceptedByDriver, PickedUp, Delivered:
			return errs.NewValueIsRequiredErrorWithCause("driver", fmt.Errorf("status %s requires a driver", o.status))
		}
		return nil
	}
	if err := driver.Validate(); err != nil {
		return err
	}
	if !o.isTakeout {
		return errs.NewValueIsInvalidErrorWithCause("driver", ErrInStoreOrder)
	}
	id := *driver
	o.driver = &id
	return nil
}

func (o *Order) checkFeedback() error {
	if o.feedback == nil {
		return nil
	}
	if err := o.feedback.Validate(); err != nil {
		return err
	}
	if o.status != Received {
		return errs.NewValueIsInvalidErrorWithCause("feedback", fmt.Errorf("status %s cannot carry feedback", o.status))
	}
	return nil
}

// Validate ensures the Order instance was properly constructed through NewOrder or RestoreOrder.
func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}
	return o.guard.Validate(ErrOrderIsNotConstructed)
}

// IsEqual compares two orders by their unique identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

func (o *Order) ID() kernel.UUID           { return o.id }
func (o *Order) Name() string              { return o.name }
func (o *Order) Customer() Customer        { return o.customer }
func (o *Order) Store() kernel.UUID        { return o.store }
func (o *Order) Amount() kernel.Money      { return o.amount }
func (o *Order) DeliveryFee() kernel.Money { return o.deliveryFee }
func (o *Order) IsPaid() bool              { return o.paid }
func (o *Order) IsTakeout() bool           { return o.isTakeout }
func (o *Order) Status() Status            { return o.status }
func (o *Order) StateGiven() StateGiven    { return o.stateGiven }
func (o *Order) DatePlaced() time.Time     { return o.datePlaced }
func (o *Order) Version() int64            { return o.version }

// Driver returns the assigned driver, nil until a driver accepts.
func (o *Order) Driver() *kernel.UUID {
	if o.driver == nil {
		return nil
	}
	id := *o.driver
	return &id
}

func (o *Order) Items() []Item {
	return slices.Clone(o.items)
}

// Feedback returns nil until the customer submitted feedback.
func (o *Order) Feedback() *Feedback {
	if o.feedback == nil {
		return nil
	}
	f := *o.feedback
	return &f
}

// Timer returns the timer of phase p. Unknown phases get an unstarted timer.
func (o *Order) Timer(p Phase) PhaseTimer {
	//nolint:exhaustive // unknown phases have no timer
	switch p {
	case PhasePrepare:
		return o.prepare
	case PhasePickup:
		return o.pickup
	case PhaseDeliver:
		return o.deliver
	default:
		return PhaseTimer{}
	}
}

func (o *Order) setTimer(p Phase, t PhaseTimer) {
	//nolint:exhaustive // callers validate the phase
	switch p {
	case PhasePrepare:
		o.prepare = t
	case PhasePickup:
		o.pickup = t
	case PhaseDeliver:
		o.deliver = t
	}
}

// IsActive is true while the order is neither received nor rejected.
func (o *Order) IsActive() bool {
	return !o.status.IsTerminal()
}

// AdvanceVersion is called by the repository once a change was persisted.
func (o *Order) AdvanceVersion() {
	o.version++
}

// Accept is the store taking the order. The preparation timer starts with
// an estimate of now + prepareTarget.
func (o *Order) Accept(now time.Time, prepareTarget time.Duration) error {
	next, err := o.status.Accept()
	if err != nil {
		return err
	}

	o.status = next
	o.stateGiven = ByStore
	o.prepare = o.prepare.start(now, prepareTarget)
	return nil
}

// Reject is the store declining the order. It is terminal.
func (o *Order) Reject() error {
	next, err := o.status.Reject()
	if err != nil {
		return err
	}

	o.status = next
	o.stateGiven = ByStore
	return nil
}

// Prepare completes the preparation phase.
func (o *Order) Prepare(now time.Time) error {
	next, err := o.status.Prepare()
	if err != nil {
		return err
	}

	o.status = next
	o.stateGiven = ByStore
	o.prepare = o.prepare.complete(now)
	return nil
}

// AcceptByDriver assigns driver to a delivery order the store has advanced.
// The pickup timer starts with an estimate of now + pickupTarget.
func (o *Order) AcceptByDriver(driver kernel.UUID, now time.Time, pickupTarget time.Duration) error {
	if err := driver.Validate(); err != nil {
		return err
	}

	var cause error
	switch {
	case !o.isTakeout:
		cause = ErrInStoreOrder
	case o.driver != nil:
		cause = ErrDriverAlreadyAssigned
	case o.stateGiven != ByStore:
		cause = ErrNotGivenByStore
	}
	if cause != nil {
		return errs.NewInvalidTransitionErrorWithCause(o.status.String(), AcceptDriver.String(), cause)
	}

	next, err := o.status.AcceptDriver()
	if err != nil {
		return err
	}

	o.status = next
	o.stateGiven = ByDriver
	o.driver = &driver
	o.pickup = o.pickup.start(now, pickupTarget)
	return nil
}

// Pickup completes the pickup phase and starts delivery with an estimate of
// now + deliverTarget.
func (o *Order) Pickup(now time.Time, deliverTarget time.Duration) error {
	if !o.isTakeout {
		return errs.NewInvalidTransitionErrorWithCause(o.status.String(), Pickup.String(), ErrInStoreOrder)
	}

	next, err := o.status.Pickup()
	if err != nil {
		return err
	}

	o.status = next
	o.stateGiven = ByDriver
	o.pickup = o.pickup.complete(now)
	o.deliver = o.deliver.start(now, deliverTarget)
	return nil
}

// Deliver completes the delivery phase.
func (o *Order) Deliver(now time.Time) error {
	next, err := o.status.Deliver()
	if err != nil {
		return err
	}

	o.status = next
	o.stateGiven = ByDriver
	o.deliver = o.deliver.complete(now)
	return nil
}

// Receive is the customer closing the order. Any phase still running is completed.
func (o *Order) Receive(now time.Time) error {
	next, err := o.status.Receive(o.isTakeout)
	if err != nil {
		return err
	}

	o.status = next
	o.stateGiven = ByCustomer
	for _, p := range Phases() {
		if t := o.Timer(p); t.IsRunning() {
			o.setTimer(p, t.complete(now))
		}
	}
	return nil
}

// AdjustablePhase reports whether phase p may be adjusted in the current
// status: prepare and pickup while accepted or accepted-by-driver, deliver
// while picked up. In-store orders only adjust prepare.
func (o *Order) AdjustablePhase(p Phase) bool {
	if p != PhasePrepare && !o.isTakeout {
		return false
	}

	//nolint:exhaustive // unknown phases are never adjustable
	switch p {
	case PhasePrepare, PhasePickup:
		return o.status == Accepted || o.status == AcceptedByDriver
	case PhaseDeliver:
		return o.status == PickedUp
	default:
		return false
	}
}

// AdjustPhase shifts the estimate of phase p by delta, floored at now, and
// returns the estimates before and after the change.
func (o *Order) AdjustPhase(p Phase, delta Delta, now time.Time) (time.Time, time.Time, error) {
	kind, err := AdjustmentKind(p)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if _, err = NewDelta(delta.Minutes()); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !o.isTakeout && p != PhasePrepare {
		return time.Time{}, time.Time{}, errs.NewInvalidTransitionErrorWithCause(o.status.String(), kind.String(), ErrInStoreOrder)
	}
	if !o.AdjustablePhase(p) {
		return time.Time{}, time.Time{}, errs.NewInvalidTransitionError(o.status.String(), kind.String())
	}

	timer := o.Timer(p)
	if !timer.IsRunning() {
		return time.Time{}, time.Time{}, errs.NewInvalidTransitionErrorWithCause(o.status.String(), kind.String(), ErrPhaseNotRunning)
	}

	shifted := timer.shift(delta.Duration(), now)
	o.setTimer(p, shifted)
	return timer.EstimatedAt(), shifted.EstimatedAt(), nil
}

// SetPaid toggles the payment flag and reports whether it changed.
// Closed orders keep the flag they were closed with.
func (o *Order) SetPaid(paid bool) (bool, error) {
	if o.status.IsTerminal() {
		return false, errs.NewInvalidTransitionError(o.status.String(), "set_paid")
	}
	changed := o.paid != paid
	o.paid = paid
	return changed, nil
}

// AddFeedback attaches the customer's review to a received order, once.
func (o *Order) AddFeedback(f Feedback) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if o.status != Received {
		return errs.NewInvalidTransitionError(o.status.String(), SubmitFeedback.String())
	}
	if o.feedback != nil {
		return errs.NewInvalidTransitionErrorWithCause(o.status.String(), SubmitFeedback.String(), ErrFeedbackAlreadySubmitted)
	}

	o.feedback = &f
	return nil
}
