package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
	"github/chapool/signing-gateway/internal/signing/request"
	"github/chapool/signing-gateway/internal/signing/verdict"
	"github/chapool/signing-gateway/internal/util"
)

const (
	DefaultTimeout = 2 * time.Second

	ReasonTimeout     = "validator timeout"
	reasonErrorPrefix = "validator error: "
)

// Engine evaluates a request against an ordered chain of validator modules.
type Engine struct {
	modules []*Module
	timeout time.Duration
}

// NewEngine creates a new policy engine. A non-positive timeout falls back to DefaultTimeout.
func NewEngine(timeout time.Duration, modules ...*Module) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Engine{
		modules: modules,
		timeout: timeout,
	}
}

// Modules returns the names of the loaded modules in evaluation order.
func (e *Engine) Modules() []string {
	names := make([]string, 0, len(e.modules))
	for _, m := range e.modules {
		names = append(names, m.Name)
	}

	return names
}

// Evaluate runs the request through every module in order and returns the first denial.
// A module without a handler for the request's variant does not apply and allows it.
// Errors and timeouts inside a module deny the request and are marked as faults.
func (e *Engine) Evaluate(ctx context.Context, req *request.Request) verdict.Verdict {
	log := util.LogFromContext(ctx)

	handler := handlerFor(req.Variant)
	if handler == "" {
		return verdict.Denyf("unsupported request variant %s", req.Variant)
	}

	if len(e.modules) == 0 {
		return verdict.Allow
	}

	payload, err := decodePayload(req)
	if err != nil {
		return verdict.Verdict{Reason: reasonErrorPrefix + err.Error(), Fault: true}
	}

	account := req.Account.Hex()

	for _, m := range e.modules {
		v := e.invoke(ctx, m, handler, account, payload)
		if v.Denied() {
			log.Debug().
				Str("validator", m.Name).
				Str("handler", handler).
				Str("account", account).
				Str("reason", v.Reason).
				Bool("fault", v.Fault).
				Msg("Validator denied request")

			return v
		}
	}

	return verdict.Allow
}

// invoke runs one module with the engine's budget. The interpreter observes the deadline
// itself; the select covers builtins that do not yield back to the VM.
func (e *Engine) invoke(ctx context.Context, m *Module, handler string, account string, payload any) verdict.Verdict {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result := make(chan verdict.Verdict, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- m.fault(fmt.Sprintf("%v", r))
			}
		}()

		result <- m.run(ctx, handler, account, payload)
	}()

	select {
	case v := <-result:
		return v
	case <-ctx.Done():
		return m.interrupted(ctx)
	}
}

func (m *Module) run(ctx context.Context, handler string, account string, payload any) verdict.Verdict {
	L := newSandbox(ctx, m.Name) //nolint:gocritic // conventional gopher-lua name
	defer L.Close()

	L.SetContext(ctx)

	// define the module's globals
	L.Push(L.NewFunctionFromProto(m.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return m.failure(ctx, err)
	}
	L.SetTop(0)

	fn := L.GetGlobal(handler)
	switch fn.Type() {
	case lua.LTNil:
		return verdict.Allow
	case lua.LTFunction:
	default:
		return m.fault(fmt.Sprintf("%s is a %s, not a function", handler, fn.Type()))
	}

	err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    2, //nolint:mnd // verdict and optional reason
		Protect: true,
	}, lua.LString(account), toLua(L, payload))
	if err != nil {
		return m.failure(ctx, err)
	}

	allowed, reason := L.Get(-2), L.Get(-1) //nolint:mnd
	L.Pop(2)                                //nolint:mnd

	if lua.LVAsBool(allowed) {
		return verdict.Allow
	}

	v := verdict.Verdict{
		Reason: fmt.Sprintf("handler '%s' denied signature", handler),
		Module: m.Name,
	}
	if s, ok := reason.(lua.LString); ok && s != "" {
		v.Reason = string(s)
	}

	return v
}

func (m *Module) failure(ctx context.Context, err error) verdict.Verdict {
	if ctx.Err() != nil {
		return m.interrupted(ctx)
	}

	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return m.fault(apiErr.Object.String())
	}

	return m.fault(err.Error())
}

func (m *Module) interrupted(ctx context.Context) verdict.Verdict {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return verdict.Verdict{Reason: ReasonTimeout, Module: m.Name, Fault: true}
	}

	return m.fault(ctx.Err().Error())
}

func (m *Module) fault(message string) verdict.Verdict {
	return verdict.Verdict{Reason: reasonErrorPrefix + message, Module: m.Name, Fault: true}
}

func decodePayload(req *request.Request) (any, error) {
	raw, err := req.PayloadJSON()
	if err != nil {
		return nil, err
	}

	var payload any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode request payload")
	}

	return payload, nil
}
