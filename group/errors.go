package group

import (
	"fmt"
	"math/big"
)

// RangeError reports a value outside of its algebraic domain. It is never
// corrected by reduction.
type RangeError struct {
	Domain string
	Value  *big.Int
}

func (e *RangeError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("group: missing value for %s", e.Domain)
	}
	return fmt.Sprintf("group: value of %d bits is outside %s", e.Value.BitLen(), e.Domain)
}
