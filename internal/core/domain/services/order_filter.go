package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"golang.org/x/text/cases"
)

// OrderType narrows a listing to delivery or in-store orders.
type OrderType int

const (
	AnyOrderType OrderType = iota
	DeliveryOrders
	InStoreOrders
)

func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "", "any":
		return AnyOrderType, nil
	case "delivery":
		return DeliveryOrders, nil
	case "in-store", "instore":
		return InStoreOrders, nil
	default:
		return AnyOrderType, errs.NewValueIsInvalidErrorWithCause("orderType", fmt.Errorf("%q is not one of delivery, in-store", s))
	}
}

// Assignment narrows a listing by driver assignment. Only store and driver
// viewers can filter on it.
type Assignment int

const (
	AnyAssignment Assignment = iota
	Assigned
	Unassigned
)

func ParseAssignment(s string) (Assignment, error) {
	switch s {
	case "", "any":
		return AnyAssignment, nil
	case "assigned":
		return Assigned, nil
	case "unassigned":
		return Unassigned, nil
	default:
		return AnyAssignment, errs.NewValueIsInvalidErrorWithCause("assignment", fmt.Errorf("%q is not one of assigned, unassigned", s))
	}
}

// Date is a calendar day without a zone; the zone comes from Criteria.Location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate accepts YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, errs.NewValueIsInvalidErrorWithCause("date", err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) at(tod TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// TimeOfDay is a wall clock minute.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts HH:MM.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, errs.NewValueIsInvalidErrorWithCause("time", err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// sinceMidnight is the offset of the first instant of the minute.
func (t TimeOfDay) sinceMidnight() time.Duration {
	return time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute
}

const (
	endOfMinute = time.Minute - time.Millisecond
	endOfDay    = 24*time.Hour - time.Millisecond
)

// Criteria is a conjunction of independent predicates. A nil or empty field
// matches every order.
//
// Dates bound datePlaced by calendar days (from 00:00:00, to 23:59:59.999).
// A time next to its date refines that boundary. A time without its date
// compares the time of day only, so TimeFrom 22:00 with TimeTo 02:00 and no
// dates selects orders placed overnight on any day.
type Criteria struct {
	Statuses   []order.Status
	DateFrom   *Date
	DateTo     *Date
	TimeFrom   *TimeOfDay
	TimeTo     *TimeOfDay
	PriceMin   *int64
	PriceMax   *int64
	OrderType  OrderType
	Assignment Assignment
	Search     string

	// Location is the calendar used for day boundaries, UTC when nil.
	Location *time.Location
}

// Validate rejects empty ranges and unknown statuses.
func (c Criteria) Validate() error {
	var errList []error
	for _, s := range c.Statuses {
		errList = append(errList, s.Validate())
	}
	if c.PriceMin != nil && c.PriceMax != nil && *c.PriceMin > *c.PriceMax {
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause("price", fmt.Errorf("min %d is above max %d", *c.PriceMin, *c.PriceMax)))
	}
	if c.DateFrom != nil && c.DateTo != nil && c.DateFrom.at(TimeOfDay{}, time.UTC).After(c.DateTo.at(TimeOfDay{}, time.UTC)) {
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause("date", fmt.Errorf("%s is after %s", c.DateFrom, c.DateTo)))
	}
	return errors.Join(errList...)
}

// IsEmpty reports criteria that match everything.
func (c Criteria) IsEmpty() bool {
	return len(c.Statuses) == 0 && c.DateFrom == nil && c.DateTo == nil &&
		c.TimeFrom == nil && c.TimeTo == nil && c.PriceMin == nil && c.PriceMax == nil &&
		c.OrderType == AnyOrderType && c.Assignment == AnyAssignment && strings.TrimSpace(c.Search) == ""
}

func (c Criteria) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// OrderFilter evaluates Criteria against order collections. It filters and
// never sorts: the result keeps the relative order of the input.
type OrderFilter struct{}

func NewOrderFilter() OrderFilter {
	return OrderFilter{}
}

// Apply returns the orders matching c as seen by viewer, in input order.
func (f OrderFilter) Apply(viewer actor.Actor, orders []*order.Order, c Criteria) []*order.Order {
	m := f.matcher(viewer, c)
	out := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if m.matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// Matches evaluates c against a single order.
func (f OrderFilter) Matches(viewer actor.Actor, o *order.Order, c Criteria) bool {
	return f.matcher(viewer, c).matches(o)
}

type matcher struct {
	viewer actor.Actor
	c      Criteria
	loc    *time.Location
	fold   cases.Caser
	needle string
}

// matcher prepares per-call state. A Caser is not safe for concurrent use,
// so each evaluation gets its own.
func (f OrderFilter) matcher(viewer actor.Actor, c Criteria) *matcher {
	m := &matcher{viewer: viewer, c: c, loc: c.location(), fold: cases.Fold()}
	m.needle = m.fold.String(strings.TrimSpace(c.Search))
	return m
}

func (m *matcher) matches(o *order.Order) bool {
	return m.status(o) &&
		m.placed(o) &&
		m.price(o) &&
		m.orderType(o) &&
		m.assignment(o) &&
		m.search(o)
}

func (m *matcher) status(o *order.Order) bool {
	return len(m.c.Statuses) == 0 || slices.Contains(m.c.Statuses, o.Status())
}

func (m *matcher) placed(o *order.Order) bool {
	placed := o.DatePlaced().In(m.loc)
	c := m.c

	if c.DateFrom != nil {
		var tod TimeOfDay
		if c.TimeFrom != nil {
			tod = *c.TimeFrom
		}
		if placed.Before(c.DateFrom.at(tod, m.loc)) {
			return false
		}
	}
	if c.DateTo != nil {
		var to time.Time
		if c.TimeTo != nil {
			to = c.DateTo.at(*c.TimeTo, m.loc).Add(endOfMinute)
		} else {
			to = c.DateTo.at(TimeOfDay{}, m.loc).Add(endOfDay)
		}
		if placed.After(to) {
			return false
		}
	}

	fromTOD := c.DateFrom == nil && c.TimeFrom != nil
	toTOD := c.DateTo == nil && c.TimeTo != nil
	if !fromTOD && !toTOD {
		return true
	}

	// wall clock reading; elapsed time since midnight differs on DST days
	offset := time.Duration(placed.Hour())*time.Hour +
		time.Duration(placed.Minute())*time.Minute +
		time.Duration(placed.Second())*time.Second +
		time.Duration(placed.Nanosecond())
	lo, hi := time.Duration(0), endOfDay
	if fromTOD {
		lo = c.TimeFrom.sinceMidnight()
	}
	if toTOD {
		hi = c.TimeTo.sinceMidnight() + endOfMinute
	}
	if fromTOD && toTOD && lo > hi {
		return offset >= lo || offset <= hi
	}
	return offset >= lo && offset <= hi
}

func (m *matcher) price(o *order.Order) bool {
	amount := o.Amount().Amount()
	if m.c.PriceMin != nil && amount < *m.c.PriceMin {
		return false
	}
	if m.c.PriceMax != nil && amount > *m.c.PriceMax {
		return false
	}
	return true
}

func (m *matcher) orderType(o *order.Order) bool {
	switch m.c.OrderType {
	case DeliveryOrders:
		return o.IsTakeout()
	case InStoreOrders:
		return !o.IsTakeout()
	case AnyOrderType:
		return true
	default:
		return true
	}
}

func (m *matcher) assignment(o *order.Order) bool {
	if m.viewer.Role() != actor.Store && m.viewer.Role() != actor.Driver {
		return true
	}
	switch m.c.Assignment {
	case Assigned:
		return o.Driver() != nil
	case Unassigned:
		return o.Driver() == nil
	case AnyAssignment:
		return true
	default:
		return true
	}
}

// search is a case-folded substring match on id and name and, unless the
// viewer is a customer, on the customer's name and username.
func (m *matcher) search(o *order.Order) bool {
	if m.needle == "" {
		return true
	}

	fields := []string{o.ID().String(), o.Name()}
	if m.viewer.Role() != actor.Customer {
		fields = append(fields, o.Customer().Name(), o.Customer().Username())
	}
	for _, field := range fields {
		if strings.Contains(m.fold.String(field), m.needle) {
			return true
		}
	}
	return false
}
