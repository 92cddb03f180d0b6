package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// Deadline defaults.
const (
	DefaultDeadline    = 10 * time.Second
	DefaultMaxDeadline = 60 * time.Second
)

// Status is the terminal state of one invocation.
type Status int

// Invocation states.
const (
	Completed Status = iota + 1
	TimedOut
	Failed
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the uniform outcome of Invoke.
type Result struct {
	// Status is the terminal state.
	Status Status
	// Response is set when Status is Completed.
	Response Response
	// Cause is set when Status is Failed.
	Cause error
	// Deadline is the effective deadline used.
	Deadline time.Duration
	// Elapsed is the time spent waiting.
	Elapsed time.Duration
}

// Options configures an Invoker.
type Options struct {
	// DefaultDeadline applies when Invoke gets a non-positive deadline.
	DefaultDeadline time.Duration
	// MaxDeadline caps any requested deadline.
	MaxDeadline time.Duration
	// UpstreamRatePerMinute paces calls to the service process-wide. Zero disables pacing.
	UpstreamRatePerMinute int
	// Logger is used for debug logging.
	Logger *slog.Logger
}

// Invoker performs exactly one completion call under a hard deadline.
// It never retries.
type Invoker struct {
	client          Client
	defaultDeadline time.Duration
	maxDeadline     time.Duration
	limiter         *rate.Limiter
	logger          *slog.Logger
}

type callResult struct {
	resp Response
	err  error
}

var errPacingDeadline = errors.New("upstream pacing would exceed deadline")

var tracer = otel.Tracer("github.com/codex-k8s/canvas-command-gateway/internal/completion")

// NewInvoker wraps client with deadline enforcement.
func NewInvoker(client Client, opts Options) *Invoker {
	if opts.DefaultDeadline <= 0 {
		opts.DefaultDeadline = DefaultDeadline
	}
	if opts.MaxDeadline <= 0 {
		opts.MaxDeadline = DefaultMaxDeadline
	}
	if opts.MaxDeadline < opts.DefaultDeadline {
		opts.MaxDeadline = opts.DefaultDeadline
	}
	inv := &Invoker{
		client:          client,
		defaultDeadline: opts.DefaultDeadline,
		maxDeadline:     opts.MaxDeadline,
		logger:          opts.Logger,
	}
	if opts.UpstreamRatePerMinute > 0 {
		inv.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.UpstreamRatePerMinute)), opts.UpstreamRatePerMinute)
	}
	return inv
}

// DefaultDeadline returns the deadline used when none is requested.
func (i *Invoker) DefaultDeadline() time.Duration {
	return i.defaultDeadline
}

// Invoke races one client call against deadline. If the timer fires first the
// call's context is cancelled, its eventual result is dropped, and TimedOut is
// returned without waiting for it.
func (i *Invoker) Invoke(ctx context.Context, req Request, deadline time.Duration) Result {
	deadline = i.effectiveDeadline(deadline)
	started := time.Now()

	ctx, span := tracer.Start(ctx, "completion.invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("completion.model", req.Model),
		attribute.Int64("completion.deadline_ms", deadline.Milliseconds()),
	)

	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		if i.limiter != nil {
			if err := i.limiter.Wait(callCtx); err != nil {
				if ctx.Err() == nil {
					err = fmt.Errorf("%w: %v", errPacingDeadline, err)
				}
				done <- callResult{err: err}
				return
			}
		}
		resp, err := i.client.Complete(callCtx, req)
		done <- callResult{resp: resp, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	var res Result
	select {
	case out := <-done:
		res = i.classify(ctx, callCtx, out)
	case <-timer.C:
		res = Result{Status: TimedOut}
	case <-ctx.Done():
		res = Result{Status: Failed, Cause: ctx.Err()}
	}
	res.Deadline = deadline
	res.Elapsed = time.Since(started)

	span.SetAttributes(attribute.String("completion.status", res.Status.String()))
	if res.Status != Completed {
		span.SetStatus(codes.Error, res.Status.String())
	}
	if res.Cause != nil {
		span.RecordError(res.Cause)
	}
	if i.logger != nil {
		i.logger.Debug("completion invoked", "status", res.Status.String(), "elapsed_ms", res.Elapsed.Milliseconds(), "deadline_ms", deadline.Milliseconds())
	}
	return res
}

func (i *Invoker) classify(ctx, callCtx context.Context, out callResult) Result {
	if out.err == nil {
		return Result{Status: Completed, Response: out.resp}
	}
	if err := ctx.Err(); err != nil {
		return Result{Status: Failed, Cause: err}
	}
	if errors.Is(out.err, errPacingDeadline) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return Result{Status: TimedOut}
	}
	return Result{Status: Failed, Cause: out.err}
}

func (i *Invoker) effectiveDeadline(deadline time.Duration) time.Duration {
	if deadline <= 0 {
		return i.defaultDeadline
	}
	if deadline > i.maxDeadline {
		return i.maxDeadline
	}
	return deadline
}
