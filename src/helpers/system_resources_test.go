package helpers

import (
	"runtime/debug"
	"testing"

	"fx-agent/src/logger"

	"github.com/stretchr/testify/assert"
)

func TestRecommendedMemoryLimit(t *testing.T) {
	limit := RecommendedMemoryLimitMB()
	assert.Greater(t, limit, 0)

	if total := AvailableMemoryMB(); total > 0 {
		assert.LessOrEqual(t, limit, total)
	}
}

func TestApplyMemoryLimitHonoursGOMEMLIMIT(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "1GiB")
	assert.Equal(t, 0, ApplyMemoryLimit(logger.NewNopLogger()))
}

func TestApplyMemoryLimitSetsRuntimeLimit(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	previous := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(previous)

	limitMB := ApplyMemoryLimit(logger.NewNopLogger())
	assert.Greater(t, limitMB, 0)
	assert.Equal(t, int64(limitMB)<<20, debug.SetMemoryLimit(-1))
}
