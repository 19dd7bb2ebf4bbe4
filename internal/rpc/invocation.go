package rpc

import "context"

// Invocation is the single envelope threaded through both the client and
// server paths of one RPC. Once encoded for transmission it is logically
// immutable on the request side; the response side (Result xor Err) may be
// written exactly once.
type Invocation struct {
	Service  ServiceIdentity
	Method   string
	Protocol Protocol
	Codec    CodecType

	Args    []string
	Headers Header

	RequestID string

	result *string
	err    error

	ctx context.Context
}

// New creates an Invocation carrying ctx, ready for meta-population.
func New(ctx context.Context, service ServiceIdentity, method string) *Invocation {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Invocation{
		Service: service,
		Method:  method,
		Headers: NewHeader(),
		ctx:     ctx,
	}
}

// Context returns the Go context carried alongside this invocation, for
// cancellation and deadline propagation.
func (inv *Invocation) Context() context.Context {
	return inv.ctx
}

// WithContext returns a shallow copy of inv carrying ctx.
func (inv *Invocation) WithContext(ctx context.Context) *Invocation {
	cp := *inv
	cp.ctx = ctx
	return &cp
}

// HandlerKey returns the tuple identifying the dispatchable endpoint this
// invocation targets.
func (inv *Invocation) HandlerKey() HandlerKey {
	return HandlerKey{Service: inv.Service, Method: inv.Method}
}

// Clone returns a copy of inv with no response recorded yet, for callers
// that need to attempt the same call more than once (e.g. a retrying
// filter) without tripping the single-write rule on Result/Err.
func (inv *Invocation) Clone() *Invocation {
	cp := *inv
	cp.result = nil
	cp.err = nil
	return &cp
}

// SetResult records a successful response. It is an error to call this
// after SetError, or more than once.
func (inv *Invocation) SetResult(result string) {
	if inv.result != nil || inv.err != nil {
		panic("rpc: invocation response already written")
	}
	inv.result = &result
}

// SetError records a failed response, by its RPC error kind. It is an
// error to call this after SetResult, or more than once.
func (inv *Invocation) SetError(err error) {
	if inv.result != nil || inv.err != nil {
		panic("rpc: invocation response already written")
	}
	inv.err = err
}

// Result returns the recorded result and whether one was set.
func (inv *Invocation) Result() (string, bool) {
	if inv.result == nil {
		return "", false
	}
	return *inv.result, true
}

// Err returns the recorded error, or nil if the call succeeded or has not
// yet completed.
func (inv *Invocation) Err() error {
	return inv.err
}

// Done reports whether exactly one of Result/Err has been written.
func (inv *Invocation) Done() bool {
	return inv.result != nil || inv.err != nil
}
