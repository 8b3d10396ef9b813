// Package orderrepo persists order aggregates. Writes go through GORM inside
// a unit of work; reads for listings go through sqlx with squirrel-built SQL.
// Both map the same orders table through OrderDTO.
package orderrepo

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// OrderDTO is one row of the orders table. Phase timers and feedback are
// flattened into nullable columns so sqlx can scan the row without GORM's
// embedding rules.
type OrderDTO struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" db:"id"`
	Name             string     `gorm:"not null"             db:"name"`
	CustomerID       *uuid.UUID `gorm:"type:uuid;index"      db:"customer_id"`
	CustomerName     string     `gorm:"not null"             db:"customer_name"`
	CustomerUsername string     `db:"customer_username"`
	StoreID          uuid.UUID  `gorm:"type:uuid;index"      db:"store_id"`
	DriverID         *uuid.UUID `gorm:"type:uuid;index"      db:"driver_id"`

	Amount      int64  `db:"amount"`
	DeliveryFee int64  `db:"delivery_fee"`
	Currency    string `gorm:"size:3"  db:"currency"`
	Paid        bool   `db:"paid"`
	IsTakeout   bool   `db:"is_takeout"`
	Items       Items  `db:"items"`

	Status     int       `gorm:"index" db:"status"`
	StateGiven int       `db:"state_given"`
	DatePlaced time.Time `gorm:"index" db:"date_placed"`

	PrepareStartedAt   *time.Time `db:"prepare_started_at"`
	PrepareEstimatedAt *time.Time `db:"prepare_estimated_at"`
	PrepareCompletedAt *time.Time `db:"prepare_completed_at"`
	PickupStartedAt    *time.Time `db:"pickup_started_at"`
	PickupEstimatedAt  *time.Time `db:"pickup_estimated_at"`
	PickupCompletedAt  *time.Time `db:"pickup_completed_at"`
	DeliverStartedAt   *time.Time `db:"deliver_started_at"`
	DeliverEstimatedAt *time.Time `db:"deliver_estimated_at"`
	DeliverCompletedAt *time.Time `db:"deliver_completed_at"`

	FeedbackRating      *int       `db:"feedback_rating"`
	FeedbackComment     *string    `db:"feedback_comment"`
	FeedbackReactions   Reactions  `db:"feedback_reactions"`
	FeedbackSubmittedAt *time.Time `db:"feedback_submitted_at"`

	Version int64 `gorm:"not null;default:1" db:"version"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

// columns lists the OrderDTO columns in declaration order for hand-built SQL.
var columns = []string{
	"id", "name", "customer_id", "customer_name", "customer_username", "store_id", "driver_id",
	"amount", "delivery_fee", "currency", "paid", "is_takeout", "items",
	"status", "state_given", "date_placed",
	"prepare_started_at", "prepare_estimated_at", "prepare_completed_at",
	"pickup_started_at", "pickup_estimated_at", "pickup_completed_at",
	"deliver_started_at", "deliver_estimated_at", "deliver_completed_at",
	"feedback_rating", "feedback_comment", "feedback_reactions", "feedback_submitted_at",
	"version",
}

// ItemDTO is the JSON shape of a line item.
type ItemDTO struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Items is stored as a JSON array: jsonb on postgres, text elsewhere.
type Items []ItemDTO

func (i Items) Value() (driver.Value, error) {
	if i == nil {
		return "[]", nil
	}
	b, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (i *Items) Scan(src any) error {
	return scanJSON(src, i)
}

func (Items) GormDataType() string {
	return "json"
}

func (Items) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonType(db)
}

// Reactions is the feedback reaction set, NULL while there is no feedback.
type Reactions []string

func (r Reactions) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *Reactions) Scan(src any) error {
	return scanJSON(src, r)
}

func (Reactions) GormDataType() string {
	return "json"
}

func (Reactions) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonType(db)
}

func jsonType(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
}

func fromDomain(o *order.Order) OrderDTO {
	dto := OrderDTO{
		ID:               o.ID().Bytes(),
		Name:             o.Name(),
		CustomerID:       optionalUUID(o.Customer().ID()),
		CustomerName:     o.Customer().Name(),
		CustomerUsername: o.Customer().Username(),
		StoreID:          o.Store().Bytes(),
		DriverID:         optionalUUID(o.Driver()),
		Amount:           o.Amount().Amount(),
		DeliveryFee:      o.DeliveryFee().Amount(),
		Currency:         o.Amount().Currency().String(),
		Paid:             o.IsPaid(),
		IsTakeout:        o.IsTakeout(),
		Status:           int(o.Status()),
		StateGiven:       int(o.StateGiven()),
		DatePlaced:       o.DatePlaced(),
		Version:          o.Version(),
	}

	items := o.Items()
	dto.Items = make(Items, 0, len(items))
	for _, item := range items {
		dto.Items = append(dto.Items, ItemDTO{Name: item.Name(), Quantity: item.Quantity()})
	}

	dto.PrepareStartedAt, dto.PrepareEstimatedAt, dto.PrepareCompletedAt = timerColumns(o.Timer(order.PhasePrepare))
	dto.PickupStartedAt, dto.PickupEstimatedAt, dto.PickupCompletedAt = timerColumns(o.Timer(order.PhasePickup))
	dto.DeliverStartedAt, dto.DeliverEstimatedAt, dto.DeliverCompletedAt = timerColumns(o.Timer(order.PhaseDeliver))

	if f := o.Feedback(); f != nil {
		rating, comment, at := f.Rating(), f.Comment(), f.SubmittedAt()
		dto.FeedbackRating = &rating
		dto.FeedbackComment = &comment
		dto.FeedbackSubmittedAt = &at
		dto.FeedbackReactions = make(Reactions, 0, len(f.Reactions()))
		for _, r := range f.Reactions() {
			dto.FeedbackReactions = append(dto.FeedbackReactions, string(r))
		}
	}

	return dto
}

// toDomain rebuilds the aggregate through order.RestoreOrder, so a row the
// lifecycle could not have produced is reported instead of loaded.
func toDomain(dto OrderDTO) (*order.Order, error) {
	var errList []error
	collect := func(err error) {
		if err != nil {
			errList = append(errList, err)
		}
	}

	id, err := kernel.UUIDFromBytes(dto.ID[:])
	collect(err)
	store, err := kernel.UUIDFromBytes(dto.StoreID[:])
	collect(err)
	driver, err := restoreOptionalUUID(dto.DriverID)
	collect(err)
	customer, err := restoreCustomer(dto)
	collect(err)

	currency, err := kernel.ParseCurrency(dto.Currency)
	collect(err)
	amount, err := kernel.NewMoney(dto.Amount, currency)
	collect(err)
	fee, err := kernel.NewMoney(dto.DeliveryFee, currency)
	collect(err)

	items := make([]order.Item, 0, len(dto.Items))
	for _, it := range dto.Items {
		item, itemErr := order.NewItem(it.Name, it.Quantity)
		collect(itemErr)
		items = append(items, item)
	}

	prepare, err := restoreTimer(dto.PrepareStartedAt, dto.PrepareEstimatedAt, dto.PrepareCompletedAt)
	collect(err)
	pickup, err := restoreTimer(dto.PickupStartedAt, dto.PickupEstimatedAt, dto.PickupCompletedAt)
	collect(err)
	deliver, err := restoreTimer(dto.DeliverStartedAt, dto.DeliverEstimatedAt, dto.DeliverCompletedAt)
	collect(err)
	feedback, err := restoreFeedback(dto)
	collect(err)

	if err = errors.Join(errList...); err != nil {
		return nil, fmt.Errorf("restore order %s: %w", dto.ID, err)
	}

	return order.RestoreOrder(order.Snapshot{
		ID: id,
		Details: order.Details{
			Name:        dto.Name,
			Customer:    customer,
			Store:       store,
			Amount:      amount,
			DeliveryFee: fee,
			IsTakeout:   dto.IsTakeout,
			Items:       items,
		},
		Driver:     driver,
		Paid:       dto.Paid,
		Status:     order.Status(dto.Status),
		StateGiven: order.StateGiven(dto.StateGiven),
		DatePlaced: dto.DatePlaced,
		Prepare:    prepare,
		Pickup:     pickup,
		Deliver:    deliver,
		Feedback:   feedback,
		Version:    dto.Version,
	})
}

func optionalUUID(id *kernel.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	raw := id.Bytes()
	return &raw
}

func restoreOptionalUUID(raw *uuid.UUID) (*kernel.UUID, error) {
	if raw == nil {
		return nil, nil //nolint:nilnil // absent reference
	}
	id, err := kernel.UUIDFromBytes(raw[:])
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func restoreCustomer(dto OrderDTO) (order.Customer, error) {
	if dto.CustomerID == nil {
		return order.NewGuestCustomer(dto.CustomerName)
	}
	id, err := kernel.UUIDFromBytes(dto.CustomerID[:])
	if err != nil {
		return order.Customer{}, err
	}
	return order.NewCustomer(id, dto.CustomerName, dto.CustomerUsername)
}

func timerColumns(t order.PhaseTimer) (*time.Time, *time.Time, *time.Time) {
	return optionalTime(t.StartedAt()), optionalTime(t.EstimatedAt()), optionalTime(t.CompletedAt())
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func valueOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func restoreTimer(started, estimated, completed *time.Time) (order.PhaseTimer, error) {
	return order.RestorePhaseTimer(valueOf(started), valueOf(estimated), valueOf(completed))
}

func restoreFeedback(dto OrderDTO) (*order.Feedback, error) {
	if dto.FeedbackRating == nil {
		return nil, nil //nolint:nilnil // no feedback yet
	}

	var comment string
	if dto.FeedbackComment != nil {
		comment = *dto.FeedbackComment
	}
	reactions := make([]order.Reaction, 0, len(dto.FeedbackReactions))
	for _, r := range dto.FeedbackReactions {
		reactions = append(reactions, order.Reaction(r))
	}

	f, err := order.NewFeedback(*dto.FeedbackRating, comment, reactions, valueOf(dto.FeedbackSubmittedAt))
	if err != nil {
		return nil, err
	}
	return &f, nil
}
