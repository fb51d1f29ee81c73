// Package host simulates the runtime side of a program invocation: it lays
// out the input buffer, lends a heap, meters compute, collects logs and
// writes account changes back only when the program succeeds.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lugondev/go-anvil/internal/common"
	"github.com/lugondev/go-anvil/internal/config"
	"github.com/lugondev/go-anvil/internal/metrics"
	"github.com/lugondev/go-anvil/pkg/alloc"
	"github.com/lugondev/go-anvil/pkg/buffer"
	"github.com/lugondev/go-anvil/pkg/entrypoint"
	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/log"
	"github.com/lugondev/go-anvil/pkg/rent"
	"github.com/lugondev/go-anvil/pkg/types"
	"github.com/lugondev/go-anvil/pkg/view"
)

var (
	// ErrReadonlyModified is returned when a program changed an account it
	// did not receive as writable.
	ErrReadonlyModified = errors.New("instruction modified data of a read-only account")

	// ErrUnbalancedInstruction is returned when lamports were created or
	// destroyed.
	ErrUnbalancedInstruction = errors.New("sum of account balances before and after instruction do not match")
)

// ProgramFunc is a program run by the host. It receives the invocation for
// host services and the parsed input.
type ProgramFunc func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error

// Result describes a finished invocation.
type Result struct {
	ID           uuid.UUID
	ReturnCode   uint64
	Err          error
	Logs         []string
	ComputeUnits uint64
	HeapUsed     uint64
	Modified     []types.Pubkey
}

// Success reports whether the instruction succeeded and was committed.
func (r *Result) Success() bool {
	return r.ReturnCode == entrypoint.Success && r.Err == nil
}

// Runtime runs programs against host-side account state.
type Runtime struct {
	common.LoggerMixin
	cfg     config.RuntimeConfig
	rent    rent.Rent
	metrics metrics.Metrics
}

// NewRuntime creates a runtime with the given limits. A zero heap size or
// compute budget selects the default.
func NewRuntime(cfg config.RuntimeConfig) *Runtime {
	defaults := config.DefaultConfig().Runtime
	if cfg.HeapSize <= 0 {
		cfg.HeapSize = defaults.HeapSize
	}
	if cfg.ComputeBudget == 0 {
		cfg.ComputeBudget = defaults.ComputeBudget
	}
	return &Runtime{
		LoggerMixin: common.NewLoggerMixin(),
		cfg:         cfg,
		rent:        rent.Default(),
		metrics:     metrics.NoopMetrics{},
	}
}

// SetMetrics sets where invocation metrics are recorded. Nil disables them.
func (r *Runtime) SetMetrics(m metrics.Metrics) {
	if m == nil {
		m = metrics.NoopMetrics{}
	}
	r.metrics = m
}

// Invoke runs fn as programID over accounts and data.
//
// Account states are updated only when the program succeeds and the
// post-execution checks pass; otherwise they are left exactly as they were.
// The returned error covers host failures (cancelled context, unserializable
// input); program failures are reported in the Result.
func (r *Runtime) Invoke(ctx context.Context, programID types.Pubkey, accounts []InstructionAccount, data []byte, fn ProgramFunc) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, err := SerializeInput(programID, accounts, data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize input: %w", err)
	}

	start := time.Now()
	region := buffer.GetBuffer(r.cfg.HeapSize)
	defer buffer.PutBuffer(region)

	inv := &Invocation{
		ID:        uuid.New(),
		programID: programID,
		meter:     NewComputeMeter(r.cfg.ComputeBudget),
		heap:      alloc.New(region, 0),
		rent:      r.rent,
		depth:     1,
	}
	id := programID.String()
	inv.appendLog(log.FormatInvoke(id, inv.depth))

	code, aborted, runErr := r.execute(inv, in, fn)
	if runErr == nil && code == entrypoint.Success {
		runErr = r.verify(in, accounts)
		code = aerrors.ReturnCode(runErr)
	}

	inv.appendLog(log.FormatConsumed(id, inv.meter.Consumed(), inv.meter.Limit()))
	switch {
	case runErr == nil && code == entrypoint.Success:
		inv.appendLog(log.FormatSuccess(id))
	case aborted || !isProgramError(runErr):
		inv.appendLog(log.FormatAbort(id, reason(runErr, code)))
	default:
		inv.appendLog(log.FormatFailed(id, code))
	}

	res := &Result{
		ID:           inv.ID,
		ReturnCode:   code,
		Err:          runErr,
		Logs:         inv.logs,
		ComputeUnits: inv.meter.Consumed(),
		HeapUsed:     inv.heap.Used(),
	}
	if res.Success() {
		res.Modified, err = r.commit(in, accounts)
		if err != nil {
			return nil, err
		}
	}

	r.record(ctx, res, aborted, time.Since(start))
	r.GetLogger().Debug("invocation finished",
		slog.String("id", res.ID.String()),
		slog.String("program", id),
		slog.Uint64("code", res.ReturnCode),
		slog.Uint64("compute_units", res.ComputeUnits),
		slog.Int("modified", len(res.Modified)),
	)
	return res, nil
}

func (r *Runtime) record(ctx context.Context, res *Result, aborted bool, elapsed time.Duration) {
	m := r.metrics
	errs := []error{
		m.IncrementCounter(ctx, metrics.MetricInvocations, 1),
		m.RecordHistogram(ctx, metrics.MetricComputeUnits, float64(res.ComputeUnits)),
		m.RecordHistogram(ctx, metrics.MetricHeapBytes, float64(res.HeapUsed)),
		m.RecordHistogram(ctx, metrics.MetricInvokeTimeMicros, float64(elapsed.Microseconds())),
	}
	switch {
	case res.Success():
		errs = append(errs, m.IncrementCounter(ctx, metrics.MetricAccountsModified, uint64(len(res.Modified))))
	case aborted:
		errs = append(errs, m.IncrementCounter(ctx, metrics.MetricInvocationsAborted, 1))
	default:
		errs = append(errs, m.IncrementCounter(ctx, metrics.MetricInvocationsFailed, 1))
	}
	if err := errors.Join(errs...); err != nil {
		r.GetLogger().Warn("failed to record metrics", slog.String("error", err.Error()))
	}
}

// execute runs the program, turning panics raised inside it into failures.
func (r *Runtime) execute(inv *Invocation, in *Input, fn ProgramFunc) (code uint64, aborted bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			aborted, err = recovered(rec)
			code = aerrors.ReturnCode(err)
		}
	}()

	slots := make([]view.AccountView, r.cfg.MaxAccounts)
	code = entrypoint.Process(in.Buffer, slots, func(programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
		err = fn(inv, programID, accounts, data)
		return err
	})
	if code != entrypoint.Success && err == nil {
		err = aerrors.FromCode(uint32(code))
	}
	return code, false, err
}

func recovered(rec any) (bool, error) {
	switch v := rec.(type) {
	case abort:
		return true, v.err
	case *aerrors.ProgramError:
		return false, v
	case error:
		return true, aerrors.ProgramFailure(v)
	default:
		return true, aerrors.ProgramFailure(fmt.Errorf("panicked: %v", v))
	}
}

// verify checks the output against the rules a runtime enforces before
// committing: read-only accounts are untouched and lamports are conserved.
func (r *Runtime) verify(in *Input, accounts []InstructionAccount) error {
	post, err := in.DeserializeOutput()
	if err != nil {
		return err
	}

	var before, after uint64
	for i, acc := range accounts {
		if !in.IsPrimary(i) {
			continue
		}
		before += acc.Account.Lamports
		after += post[i].Lamports
		if !in.Writable(i) && AccountFingerprint(acc.Key, acc.Account) != AccountFingerprint(acc.Key, post[i]) {
			return fmt.Errorf("%w: %s", ErrReadonlyModified, acc.Key)
		}
	}
	if before != after {
		return fmt.Errorf("%w: %d before, %d after", ErrUnbalancedInstruction, before, after)
	}
	return nil
}

// commit writes the output back into the host accounts and returns the keys
// whose state changed.
func (r *Runtime) commit(in *Input, accounts []InstructionAccount) ([]types.Pubkey, error) {
	post, err := in.DeserializeOutput()
	if err != nil {
		return nil, err
	}

	var modified []types.Pubkey
	for i, acc := range accounts {
		if !in.IsPrimary(i) {
			continue
		}
		if AccountFingerprint(acc.Key, acc.Account) != AccountFingerprint(acc.Key, post[i]) {
			modified = append(modified, acc.Key)
		}
		*acc.Account = *post[i]
	}
	return modified, nil
}

func isProgramError(err error) bool {
	var pe *aerrors.ProgramError
	return aerrors.As(err, &pe)
}

func reason(err error, code uint64) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("returned %d", code)
}
