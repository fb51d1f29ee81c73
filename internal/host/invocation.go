package host

import (
	"github.com/google/uuid"

	"github.com/lugondev/go-anvil/pkg/alloc"
	"github.com/lugondev/go-anvil/pkg/event"
	"github.com/lugondev/go-anvil/pkg/log"
	"github.com/lugondev/go-anvil/pkg/rent"
	"github.com/lugondev/go-anvil/pkg/types"
	"github.com/lugondev/go-anvil/pkg/zc"
)

var (
	_ event.Sink        = (*Invocation)(nil)
	_ zc.AccountCreator = (*Invocation)(nil)
)

// Invocation is the host side of one running instruction. Programs reach
// host services (logging, heap, compute, system program) through it.
//
// An Invocation is only valid inside the call it was passed to.
type Invocation struct {
	ID uuid.UUID

	programID types.Pubkey
	meter     *ComputeMeter
	heap      *alloc.BumpAllocator
	rent      rent.Rent
	logs      []string
	depth     int
}

// abort carries a host-level failure out of program code.
type abort struct {
	err error
}

// ProgramID returns the id of the running program.
func (inv *Invocation) ProgramID() types.Pubkey {
	return inv.programID
}

// Heap returns the invocation's bump allocator.
func (inv *Invocation) Heap() *alloc.BumpAllocator {
	return inv.heap
}

// Rent returns the rent parameters in effect.
func (inv *Invocation) Rent() rent.Rent {
	return inv.rent
}

// ConsumeUnits charges cost compute units and aborts the invocation when
// the budget is exhausted.
func (inv *Invocation) ConsumeUnits(cost uint64) {
	if err := inv.meter.Consume(cost); err != nil {
		panic(abort{err: err})
	}
}

// RemainingUnits returns the compute units left.
func (inv *Invocation) RemainingUnits() uint64 {
	return inv.meter.Remaining()
}

// Log records a program log line.
func (inv *Invocation) Log(message string) {
	inv.ConsumeUnits(CUSyscallBase)
	inv.logs = append(inv.logs, log.FormatLog(message))
}

// LogData records one program data line holding fields.
func (inv *Invocation) LogData(fields ...[]byte) {
	cost := CUSyscallBase
	for _, f := range fields {
		cost += uint64(len(f))
	}
	inv.ConsumeUnits(cost)
	inv.logs = append(inv.logs, log.FormatData(fields...))
}

func (inv *Invocation) appendLog(line string) {
	inv.logs = append(inv.logs, line)
}
