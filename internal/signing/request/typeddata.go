package request

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

// TypedData is an EIP-712 payload that keeps the caller's original document so
// validators see exactly what was submitted.
type TypedData struct {
	Raw     json.RawMessage
	Data    apitypes.TypedData
	ChainID *big.Int
}

// ParseTypedData decodes an EIP-712 document. The document may be passed as a JSON object
// or as a JSON string containing the object. domain.chainId is accepted as a number, a
// decimal string or a hex string.
func ParseTypedData(raw json.RawMessage) (*TypedData, error) {
	raw = bytes.TrimSpace(raw)

	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
		raw = json.RawMessage(inner)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	chainID, err := domainChainID(doc["domain"])
	if err != nil {
		return nil, err
	}

	normalized := raw
	if chainID != nil {
		// apitypes only understands the numeric form, so rewrite the domain before decoding
		normalized, err = withChainID(doc, chainID)
		if err != nil {
			return nil, err
		}
	}

	var data apitypes.TypedData
	if err := json.Unmarshal(normalized, &data); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	if data.PrimaryType == "" {
		return nil, errors.Wrap(ErrMalformed, "typed data is missing primaryType")
	}

	return &TypedData{
		Raw:     append(json.RawMessage(nil), raw...),
		Data:    data,
		ChainID: chainID,
	}, nil
}

// Hash returns the EIP-712 digest to be signed.
func (t *TypedData) Hash() ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(t.Data)
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	return hash, nil
}

// MarshalJSON returns the original document.
func (t *TypedData) MarshalJSON() ([]byte, error) {
	return t.Raw, nil
}

func domainChainID(rawDomain json.RawMessage) (*big.Int, error) {
	if len(rawDomain) == 0 {
		return nil, nil //nolint:nilnil // absent chain id is not an error
	}

	var domain map[string]json.RawMessage
	if err := json.Unmarshal(rawDomain, &domain); err != nil {
		return nil, errors.Wrap(ErrMalformed, "typed data domain is not an object")
	}

	value, ok := domain["chainId"]
	if !ok || string(value) == "null" {
		return nil, nil //nolint:nilnil // absent chain id is not an error
	}

	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		// not a string, expect a plain JSON number
		text = string(value)
	}
	text = strings.TrimSpace(text)

	var (
		chainID *big.Int
		valid   bool
	)
	if digits, isHex := strings.CutPrefix(strings.ToLower(text), "0x"); isHex {
		chainID, valid = new(big.Int).SetString(digits, 16)
	} else {
		chainID, valid = new(big.Int).SetString(text, 10)
	}

	if !valid || chainID.Sign() < 0 {
		return nil, errors.Wrapf(ErrMalformed, "invalid typed data chainId %q", text)
	}

	return chainID, nil
}

func withChainID(doc map[string]json.RawMessage, chainID *big.Int) (json.RawMessage, error) {
	var domain map[string]json.RawMessage
	if err := json.Unmarshal(doc["domain"], &domain); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	domain["chainId"] = json.RawMessage(chainID.String())

	rawDomain, err := json.Marshal(domain)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode typed data domain")
	}

	out := make(map[string]json.RawMessage, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	out["domain"] = rawDomain

	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode typed data")
	}

	return encoded, nil
}
