package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/util"
)

type components struct {
	Name     string
	Handler  func()
	Optional *int `init:"optional"`
	internal int
}

func TestIsStructInitialized(t *testing.T) {
	c := &components{Name: "gateway", Handler: func() {}}
	require.NoError(t, util.IsStructInitialized(c))
	require.NoError(t, util.IsStructInitialized(*c))

	c.Handler = nil
	err := util.IsStructInitialized(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Handler")

	var nilComponents *components
	require.Error(t, util.IsStructInitialized(nilComponents))
	require.Error(t, util.IsStructInitialized(42))
	assert.Zero(t, c.internal)
}
