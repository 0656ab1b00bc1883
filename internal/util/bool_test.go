package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github/chapool/signing-gateway/internal/util"
)

func TestFalseIfNil(t *testing.T) {
	disabled, enabled := true, false

	tests := []struct {
		name string
		flag *bool
		want bool
	}{
		{name: "unset validator flag", flag: nil, want: false},
		{name: "disabled = true", flag: &disabled, want: true},
		{name: "disabled = false", flag: &enabled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, util.FalseIfNil(tt.flag))
		})
	}
}
