package host

import (
	"errors"
)

// Compute unit costs charged for host services.
const (
	CUMax                  = uint64(1_400_000) // ceiling for any single invocation
	CUSyscallBase          = uint64(100)
	CUInvokeBase           = uint64(1_000)
	CUCreateProgramAddress = uint64(1_500)
	CUSystemProgramDefault = uint64(150)
)

var (
	// ErrComputeExceeded is returned when compute units are exhausted.
	ErrComputeExceeded = errors.New("exceeded compute budget")
)

// ComputeMeter tracks compute unit consumption for one invocation.
type ComputeMeter struct {
	remaining uint64
	consumed  uint64
	limit     uint64
}

// NewComputeMeter creates a meter with the given limit, capped at CUMax.
func NewComputeMeter(limit uint64) *ComputeMeter {
	limit = min(limit, CUMax)
	return &ComputeMeter{
		remaining: limit,
		limit:     limit,
	}
}

// Consume charges cost. When fewer units remain, the meter is drained and
// ErrComputeExceeded is returned.
func (cm *ComputeMeter) Consume(cost uint64) error {
	if cost > cm.remaining {
		cm.consumed += cm.remaining
		cm.remaining = 0
		return ErrComputeExceeded
	}
	cm.remaining -= cost
	cm.consumed += cost
	return nil
}

// Remaining returns the units left.
func (cm *ComputeMeter) Remaining() uint64 {
	return cm.remaining
}

// Consumed returns the units used so far.
func (cm *ComputeMeter) Consumed() uint64 {
	return cm.consumed
}

// Limit returns the meter's limit.
func (cm *ComputeMeter) Limit() uint64 {
	return cm.limit
}
