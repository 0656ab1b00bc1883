package policy

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"github/chapool/signing-gateway/internal/signing/request"
)

// Handler names looked up in a module's globals, one per request variant.
const (
	HandlerTransaction = "validate_transaction"
	HandlerTypedData   = "validate_typed_data"
	HandlerMessage     = "validate_message"
)

// Module is a validator script compiled once at startup. The compiled prototype is
// immutable and shared; every invocation loads it into a fresh interpreter.
type Module struct {
	Name  string
	proto *lua.FunctionProto
}

// Compile parses and compiles a validator script.
func Compile(name string, src io.Reader) (*Module, error) {
	chunk, err := parse.Parse(src, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse validator module %s", name)
	}

	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile validator module %s", name)
	}

	return &Module{Name: name, proto: proto}, nil
}

// CompileString compiles a validator script held in memory.
func CompileString(name string, src string) (*Module, error) {
	return Compile(name, strings.NewReader(src))
}

// LoadFile compiles the validator script at path. An empty name defaults to the file's base name.
func LoadFile(name string, path string) (*Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read validator module %s", path)
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return Compile(name, bytes.NewReader(src))
}

func handlerFor(variant request.Variant) string {
	switch variant {
	case request.VariantTransaction:
		return HandlerTransaction
	case request.VariantTypedData:
		return HandlerTypedData
	case request.VariantMessage:
		return HandlerMessage
	default:
		return ""
	}
}
