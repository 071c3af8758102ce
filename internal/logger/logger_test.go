package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_FallsBackBeforeInit(t *testing.T) {
	Logger = nil
	assert.NotNil(t, Get())
}

func TestInit(t *testing.T) {
	defer func() { Logger = nil }()

	for _, env := range []string{"development", "production"} {
		require.NoError(t, Init(env))
		assert.NotNil(t, Logger)
		assert.Same(t, Logger, Get())
		assert.NotNil(t, Named("coordinator"))
		Sync()
	}
}
