package http

import (
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ItemRequest struct {
	Name     string `json:"name"     validate:"required,max=120"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

// PlaceOrderRequest is the body of POST /orders. A customer's id comes
// from its token; guests only give a display name.
type PlaceOrderRequest struct {
	Name             string        `json:"name"             validate:"required,max=120"`
	StoreID          string        `json:"storeId"          validate:"required,uuid"`
	CustomerName     string        `json:"customerName"     validate:"required,max=120"`
	CustomerUsername string        `json:"customerUsername" validate:"max=64"`
	Amount           int64         `json:"amount"           validate:"gte=0"`
	DeliveryFee      int64         `json:"deliveryFee"      validate:"gte=0"`
	Currency         string        `json:"currency"         validate:"required,len=3"`
	IsTakeout        bool          `json:"isTakeout"`
	Items            []ItemRequest `json:"items"            validate:"required,min=1,dive"`
}

func (r PlaceOrderRequest) details(a actor.Actor) (order.Details, error) {
	store, err := kernel.UUIDFromString(r.StoreID)
	if err != nil {
		return order.Details{}, err
	}
	currency, err := kernel.ParseCurrency(r.Currency)
	if err != nil {
		return order.Details{}, err
	}
	amount, err := kernel.NewMoney(r.Amount, currency)
	if err != nil {
		return order.Details{}, err
	}
	fee, err := kernel.NewMoney(r.DeliveryFee, currency)
	if err != nil {
		return order.Details{}, err
	}

	items := make([]order.Item, 0, len(r.Items))
	for _, it := range r.Items {
		item, itemErr := order.NewItem(it.Name, it.Quantity)
		if itemErr != nil {
			return order.Details{}, itemErr
		}
		items = append(items, item)
	}

	var customer order.Customer
	if a.Role() == actor.Customer {
		customer, err = order.NewCustomer(a.ID(), r.CustomerName, r.CustomerUsername)
	} else {
		customer, err = order.NewGuestCustomer(r.CustomerName)
	}
	if err != nil {
		return order.Details{}, err
	}

	return order.Details{
		Name:        r.Name,
		Customer:    customer,
		Store:       store,
		Amount:      amount,
		DeliveryFee: fee,
		IsTakeout:   r.IsTakeout,
		Items:       items,
	}, nil
}

// AdjustRequest moves a running phase estimate by one of ±1, ±3 or ±5 minutes.
type AdjustRequest struct {
	DeltaMinutes int `json:"deltaMinutes" validate:"required,min=-5,max=5"`
}

type FeedbackRequest struct {
	Rating    int      `json:"rating"    validate:"gte=1,lte=5"`
	Comment   string   `json:"comment"   validate:"max=1000"`
	Reactions []string `json:"reactions" validate:"max=5,dive,required"`
}

func (r FeedbackRequest) reactions() []order.Reaction {
	out := make([]order.Reaction, 0, len(r.Reactions))
	for _, s := range r.Reactions {
		out = append(out, order.Reaction(s))
	}
	return out
}

type CustomerResponse struct {
	ID       *string `json:"id,omitempty"`
	Name     string  `json:"name"`
	Username string  `json:"username,omitempty"`
}

type ItemResponse struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type TimerResponse struct {
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EstimatedAt *time.Time `json:"estimatedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type FeedbackResponse struct {
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	Reactions   []string  `json:"reactions"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// OrderResponse is the full client snapshot of an order. The *Est fields
// repeat the phase estimates for clients that only render a timeline.
type OrderResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Status      string           `json:"status"`
	StatusLabel string           `json:"statusLabel"`
	StatusColor string           `json:"statusColor"`
	StateGiven  string           `json:"stateGiven,omitempty"`
	Customer    CustomerResponse `json:"customer"`
	StoreID     string           `json:"storeId"`
	DriverID    *string          `json:"driverId,omitempty"`

	Amount      int64          `json:"amount"`
	DeliveryFee int64          `json:"deliveryFee"`
	Currency    string         `json:"currency"`
	Paid        bool           `json:"paid"`
	IsTakeout   bool           `json:"isTakeout"`
	Items       []ItemResponse `json:"items"`

	DatePlaced   time.Time      `json:"datePlaced"`
	Prepare      TimerResponse  `json:"prepare"`
	Pickup       *TimerResponse `json:"pickup,omitempty"`
	Deliver      *TimerResponse `json:"deliver,omitempty"`
	PreparedEst  *time.Time     `json:"preparedEst,omitempty"`
	PickedUpEst  *time.Time     `json:"pickedupEst,omitempty"`
	DeliveredEst *time.Time     `json:"deliveredEst,omitempty"`

	Feedback *FeedbackResponse `json:"feedback,omitempty"`
	Version  int64             `json:"version"`
	IsActive bool              `json:"isActive"`
}

type AvailabilityResponse struct {
	Action  string `json:"action"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

type PhaseProgressResponse struct {
	Phase       string     `json:"phase"`
	Percent     int        `json:"percent"`
	MinutesLeft int        `json:"minutesLeft"`
	Overdue     bool       `json:"overdue"`
	Started     bool       `json:"started"`
	Completed   bool       `json:"completed"`
	EstimatedAt *time.Time `json:"estimatedAt,omitempty"`
}

type ProgressResponse struct {
	OrderID string                 `json:"orderId"`
	Status  string                 `json:"status"`
	Version int64                  `json:"version"`
	Prepare PhaseProgressResponse  `json:"prepare"`
	Pickup  *PhaseProgressResponse `json:"pickup,omitempty"`
	Deliver *PhaseProgressResponse `json:"deliver,omitempty"`
}

// BatchProgressResponse answers a batch refresh. Orders the caller cannot
// see, or that do not exist, are absent.
type BatchProgressResponse struct {
	Orders    []ProgressResponse `json:"orders"`
	Evaluated time.Time          `json:"evaluatedAt"`
}

type AdjustmentResponse struct {
	Phase        string    `json:"phase"`
	DeltaMinutes int       `json:"deltaMinutes"`
	Previous     time.Time `json:"previous"`
	Estimated    time.Time `json:"estimated"`
	Floored      bool      `json:"floored"`
}

// ActionResponse is the committed order after an action and what changed.
type ActionResponse struct {
	Order      OrderResponse       `json:"order"`
	Action     string              `json:"action"`
	From       string              `json:"from"`
	To         string              `json:"to"`
	Adjustment *AdjustmentResponse `json:"adjustment,omitempty"`
}

type OrderViewResponse struct {
	Order    OrderResponse          `json:"order"`
	Actions  []AvailabilityResponse `json:"actions"`
	Progress ProgressResponse       `json:"progress"`
}

func newOrderResponse(o *order.Order) OrderResponse {
	info := o.Status().Info()
	resp := OrderResponse{
		ID:          o.ID().String(),
		Name:        o.Name(),
		Status:      info.Code,
		StatusLabel: info.Label,
		StatusColor: info.Color,
		StateGiven:  o.StateGiven().String(),
		Customer: CustomerResponse{
			ID:       optionalString(o.Customer().ID()),
			Name:     o.Customer().Name(),
			Username: o.Customer().Username(),
		},
		StoreID:     o.Store().String(),
		DriverID:    optionalString(o.Driver()),
		Amount:      o.Amount().Amount(),
		DeliveryFee: o.DeliveryFee().Amount(),
		Currency:    o.Amount().Currency().String(),
		Paid:        o.IsPaid(),
		IsTakeout:   o.IsTakeout(),
		DatePlaced:  o.DatePlaced().UTC(),
		Prepare:     newTimerResponse(o.Timer(order.PhasePrepare)),
		Version:     o.Version(),
		IsActive:    o.IsActive(),
	}

	resp.Items = make([]ItemResponse, 0, len(o.Items()))
	for _, item := range o.Items() {
		resp.Items = append(resp.Items, ItemResponse{Name: item.Name(), Quantity: item.Quantity()})
	}

	resp.PreparedEst = resp.Prepare.EstimatedAt
	if o.IsTakeout() {
		pickup := newTimerResponse(o.Timer(order.PhasePickup))
		deliver := newTimerResponse(o.Timer(order.PhaseDeliver))
		resp.Pickup, resp.Deliver = &pickup, &deliver
		resp.PickedUpEst, resp.DeliveredEst = pickup.EstimatedAt, deliver.EstimatedAt
	}

	if f := o.Feedback(); f != nil {
		reactions := make([]string, 0, len(f.Reactions()))
		for _, r := range f.Reactions() {
			reactions = append(reactions, string(r))
		}
		resp.Feedback = &FeedbackResponse{
			Rating:      f.Rating(),
			Comment:     f.Comment(),
			Reactions:   reactions,
			SubmittedAt: f.SubmittedAt().UTC(),
		}
	}
	return resp
}

func newTimerResponse(t order.PhaseTimer) TimerResponse {
	return TimerResponse{
		StartedAt:   optionalTime(t.StartedAt()),
		EstimatedAt: optionalTime(t.EstimatedAt()),
		CompletedAt: optionalTime(t.CompletedAt()),
	}
}

func newAvailabilityResponses(set []services.Availability) []AvailabilityResponse {
	out := make([]AvailabilityResponse, 0, len(set))
	for _, a := range set {
		out = append(out, AvailabilityResponse{Action: a.Kind.String(), Enabled: a.Enabled, Reason: a.Reason})
	}
	return out
}

func newPhaseProgressResponse(p services.PhaseProgress) PhaseProgressResponse {
	return PhaseProgressResponse{
		Phase:       p.Phase.String(),
		Percent:     p.Percent,
		MinutesLeft: p.MinutesLeft,
		Overdue:     p.Overdue,
		Started:     p.Started,
		Completed:   p.Completed,
		EstimatedAt: optionalTime(p.EstimatedAt),
	}
}

func newProgressResponse(p services.OrderProgress) ProgressResponse {
	resp := ProgressResponse{
		OrderID: p.OrderID.String(),
		Status:  p.Status.String(),
		Version: p.Version,
		Prepare: newPhaseProgressResponse(p.Prepare),
	}
	if p.Pickup != nil {
		pickup := newPhaseProgressResponse(*p.Pickup)
		resp.Pickup = &pickup
	}
	if p.Deliver != nil {
		deliver := newPhaseProgressResponse(*p.Deliver)
		resp.Deliver = &deliver
	}
	return resp
}

func newActionResponse(r commands.PerformActionResult) ActionResponse {
	resp := ActionResponse{
		Order:  newOrderResponse(r.Order),
		Action: r.Outcome.Action.Kind().String(),
		From:   r.Outcome.From.String(),
		To:     r.Outcome.To.String(),
	}
	if adj := r.Outcome.Adjustment; adj != nil {
		resp.Adjustment = &AdjustmentResponse{
			Phase:        adj.Phase.String(),
			DeltaMinutes: adj.Delta.Minutes(),
			Previous:     adj.Previous.UTC(),
			Estimated:    adj.Estimated.UTC(),
			Floored:      adj.Floored(),
		}
	}
	return resp
}

func newOrderViewResponse(v queries.OrderView) OrderViewResponse {
	return OrderViewResponse{
		Order:    newOrderResponse(v.Order),
		Actions:  newAvailabilityResponses(v.Actions),
		Progress: newProgressResponse(v.Progress),
	}
}

func optionalString(id *kernel.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}
