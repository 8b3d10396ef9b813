package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// StateGiven records which party most recently advanced the order.
// Driver self-assignment is only offered while it is ByStore.
type StateGiven int

const (
	StateGivenNone StateGiven = iota
	ByStore
	ByDriver
	ByCustomer
)

func getStateGivenStrings() map[StateGiven]string {
	return map[StateGiven]string{
		StateGivenNone: "",
		ByStore:        "by-store",
		ByDriver:       "by-driver",
		ByCustomer:     "by-customer",
	}
}

// ParseStateGiven accepts the wire code; the empty string is StateGivenNone.
func ParseStateGiven(code string) (StateGiven, error) {
	for sg, str := range getStateGivenStrings() {
		if str == code {
			return sg, nil
		}
	}
	return StateGivenNone, errs.NewValueIsInvalidErrorWithCause("stateGiven", fmt.Errorf("%q is not valid", code))
}

func (sg StateGiven) String() string {
	return getStateGivenStrings()[sg]
}

func (sg StateGiven) Validate() error {
	if _, ok := getStateGivenStrings()[sg]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("stateGiven", fmt.Errorf("%d is not valid", sg))
	}
	return nil
}
