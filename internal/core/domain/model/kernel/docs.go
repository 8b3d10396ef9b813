// Package kernel provides the shared value objects of the order domain.
//
// The package includes:
//   - UUID: identifier of orders and of the parties acting on them
//   - Money and Currency: amounts in minor units, settled in IRT or USD
//
// Values are immutable and validated at construction. The zero value of each
// type is invalid and reports it through Validate, so a value that skipped its
// constructor is caught before it reaches an aggregate.
package kernel
