package policy

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
	"github/chapool/signing-gateway/internal/util"
)

// Largest magnitude integer a Lua number holds exactly.
const maxExactInt = 1 << 53

// Interpreter limits of a single validator invocation.
const (
	// MaxStringBytes caps strings built by string.rep and string.gsub.
	MaxStringBytes = 16 << 20

	callStackSize    = 200
	registrySize     = 1024 * 4
	registryMaxSize  = 1024 * 64
	registryGrowStep = 32

	// widest width or precision string.format accepts
	maxFormatDigits = 2
)

// Base library functions that would let a script reach the filesystem or load new code.
//
//nolint:gochecknoglobals
var removedBaseFuncs = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// newSandbox creates an interpreter with only the base, table, string and math libraries.
// print is redirected to the logger of ctx.
func newSandbox(ctx context.Context, module string) *lua.LState {
	L := lua.NewState(lua.Options{ //nolint:gocritic // conventional gopher-lua name
		CallStackSize:       callStackSize,
		RegistrySize:        registrySize,
		RegistryMaxSize:     registryMaxSize,
		RegistryGrowStep:    registryGrowStep,
		SkipOpenLibs:        true,
		IncludeGoStackTrace: false,
	})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range removedBaseFuncs {
		L.SetGlobal(name, lua.LNil)
	}

	if str, ok := L.GetGlobal(lua.StringLibName).(*lua.LTable); ok {
		str.RawSetString("rep", L.NewFunction(boundedRep))
		if gsub, ok := str.RawGetString("gsub").(*lua.LFunction); ok {
			str.RawSetString("gsub", L.NewFunction(boundedGsub(gsub)))
		}
		if format, ok := str.RawGetString("format").(*lua.LFunction); ok {
			str.RawSetString("format", L.NewFunction(checkedFormat(format)))
		}
	}

	logger := util.LogFromContext(ctx).With().Str("validator", module).Logger()
	L.SetGlobal("print", L.NewFunction(printTo(&logger)))

	return L
}

func printTo(logger *zerolog.Logger) lua.LGFunction {
	return func(L *lua.LState) int { //nolint:gocritic
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}

		logger.Debug().Msg(strings.Join(parts, "\t"))
		return 0
	}
}

func raiseTooLarge(L *lua.LState, fn string) { //nolint:gocritic
	L.RaiseError("%s: result exceeds %d bytes", fn, MaxStringBytes)
}

// boundedRep is string.rep refusing results above MaxStringBytes.
func boundedRep(L *lua.LState) int { //nolint:gocritic
	str := L.CheckString(1)
	n := L.CheckInt(2)

	if n <= 0 || str == "" {
		L.Push(lua.LString(""))
		return 1
	}
	if len(str) > MaxStringBytes/n {
		raiseTooLarge(L, "string.rep")
	}

	L.Push(lua.LString(strings.Repeat(str, n)))
	return 1
}

// boundedGsub wraps string.gsub. A string replacement is checked against an upper bound of
// the result before matching; function replacements are summed while matching.
func boundedGsub(gsub *lua.LFunction) lua.LGFunction {
	return func(L *lua.LState) int { //nolint:gocritic
		subject := L.CheckString(1)

		const replArg = 3

		switch repl := L.Get(replArg).(type) {
		case lua.LString:
			if gsubBound(len(subject), string(repl)) > MaxStringBytes {
				raiseTooLarge(L, "string.gsub")
			}
		case *lua.LFunction:
			total := len(subject)
			L.Replace(replArg, L.NewFunction(func(L *lua.LState) int { //nolint:gocritic
				top := L.GetTop()
				L.Push(repl)
				for i := 1; i <= top; i++ {
					L.Push(L.Get(i))
				}
				L.Call(top, 1)

				if value := L.Get(-1); value.Type() == lua.LTString || value.Type() == lua.LTNumber {
					total += len(lua.LVAsString(value))
					if total > MaxStringBytes {
						raiseTooLarge(L, "string.gsub")
					}
				}
				return 1
			}))
		}

		return callThrough(L, gsub)
	}
}

// gsubBound is the largest result a string replacement can produce. Matches do not
// overlap, so all captures together expand to at most the subject once per escape.
func gsubBound(subject int, repl string) int {
	var literal, escapes int
	for i := 0; i < len(repl); i++ {
		if repl[i] == '%' && i+1 < len(repl) {
			i++
			if repl[i] >= '0' && repl[i] <= '9' {
				escapes++
				continue
			}
		}
		literal++
	}

	return subject + (subject+1)*literal + escapes*subject
}

// checkedFormat wraps string.format rejecting widths and precisions of more than two
// digits, as the reference interpreter does.
func checkedFormat(format *lua.LFunction) lua.LGFunction {
	return func(L *lua.LState) int { //nolint:gocritic
		if err := checkFormatDirectives(L.CheckString(1)); err != nil {
			L.RaiseError("string.format: %s", err.Error())
		}

		return callThrough(L, format)
	}
}

func checkFormatDirectives(f string) error {
	for i := 0; i < len(f); i++ {
		if f[i] != '%' {
			continue
		}
		i++
		if i < len(f) && f[i] == '%' {
			continue
		}
		for i < len(f) && strings.IndexByte("-+ #0", f[i]) >= 0 {
			i++
		}

		digits := 0
		for i < len(f) && f[i] >= '0' && f[i] <= '9' {
			i++
			digits++
		}
		if i < len(f) && f[i] == '.' {
			i++
			precision := 0
			for i < len(f) && f[i] >= '0' && f[i] <= '9' {
				i++
				precision++
			}
			digits = max(digits, precision)
		}
		if digits > maxFormatDigits {
			return errors.New("invalid format (width or precision too long)")
		}
	}

	return nil
}

// callThrough calls fn with the current arguments and returns all its results.
func callThrough(L *lua.LState, fn *lua.LFunction) int { //nolint:gocritic
	top := L.GetTop()
	L.Push(fn)
	for i := 1; i <= top; i++ {
		L.Push(L.Get(i))
	}
	L.Call(top, lua.MultRet)

	return L.GetTop() - top
}

// toLua converts a JSON document decoded with UseNumber into Lua values. Integers that do
// not fit a Lua number exactly are passed as their decimal string.
func toLua(L *lua.LState, value any) lua.LValue { //nolint:gocritic
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			if i >= -maxExactInt && i <= maxExactInt {
				return lua.LNumber(i)
			}
			return lua.LString(v.String())
		}
		if strings.ContainsAny(v.String(), ".eE") {
			if f, err := v.Float64(); err == nil {
				return lua.LNumber(f)
			}
		}
		return lua.LString(v.String())
	case []any:
		table := L.CreateTable(len(v), 0)
		for _, item := range v {
			table.Append(toLua(L, item))
		}
		return table
	case map[string]any:
		table := L.CreateTable(0, len(v))
		for key, item := range v {
			table.RawSetString(key, toLua(L, item))
		}
		return table
	default:
		return lua.LNil
	}
}
