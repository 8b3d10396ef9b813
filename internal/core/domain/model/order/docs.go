// Package order provides the Order aggregate and the value objects of its lifecycle.
//
// The package includes:
//   - Order: the aggregate root owning status, driver assignment, phase timers,
//     payment flag and feedback
//   - Status: the status registry (wire code, label, color) and the transition graph
//   - StateGiven: which party last advanced the order
//   - Phase and PhaseTimer: prepare, pickup and deliver with their timestamps
//   - Action and Delta: the structured request sum type; adjustment deltas are
//     restricted to ±1, ±3 and ±5 minutes at construction
//   - Feedback, Customer and Item
//
// Key business rules:
//   - Placed -> Accepted -> Prepared -> Received for in-store orders
//   - Placed -> Accepted -> [AcceptedByDriver] -> Prepared -> PickedUp -> Delivered -> Received
//     for delivery orders
//   - Rejected is only reachable from Placed; Received and Rejected are terminal
//   - a pickup before preparation finished is an invalid transition, not a no-op
//   - estimates can be shifted but never before the time of the shift
//
// Role based permission checks are not part of this package; see the domain
// services for who may perform which action.
package order
