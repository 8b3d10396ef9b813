// Package services contains the domain services that coordinate the order lifecycle.
//
// The package includes:
//   - ActionGateway: derives the action set of an actor for an order and refuses
//     anything outside of it with errs.PermissionDeniedError
//   - StateMachine: authorizes through the gateway and applies transitions and
//     adjustments to the Order aggregate
//   - TimeAdjustmentManager: owner-only estimate changes floored at now
//   - ProgressEngine: per-phase percentages and minutes left from timestamps and now
//   - OrderFilter: conjunctive, order preserving filtering of order collections
//
// All services are stateless and safe for concurrent use. None of them read
// the clock; callers pass now explicitly, usually from a Clock.
package services
