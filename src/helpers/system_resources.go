package helpers

import (
	"os"
	"runtime/debug"

	"fx-agent/src/logger"
)

const fallbackMemoryLimitMB = 512

// -----------------------------------------------------------------------------

// RecommendedMemoryLimitMB is 75% of the memory available to the process,
// with a 512MB floor when the machine has more than that.
func RecommendedMemoryLimitMB() int {
	totalMB := AvailableMemoryMB()
	if totalMB == 0 {
		return fallbackMemoryLimitMB
	}

	limit := int(float64(totalMB) * 0.75)
	if limit < fallbackMemoryLimitMB {
		if totalMB < fallbackMemoryLimitMB {
			return totalMB
		}
		return fallbackMemoryLimitMB
	}
	return limit
}

// -----------------------------------------------------------------------------

// ApplyMemoryLimit sets the runtime soft memory limit unless GOMEMLIMIT is
// already set. Feature building over years of M1 bars is the peak consumer.
func ApplyMemoryLimit(log *logger.Logger) int {
	if v := os.Getenv("GOMEMLIMIT"); v != "" {
		log.Info("Memory limit taken from GOMEMLIMIT=%s", v)
		return 0
	}

	limitMB := RecommendedMemoryLimitMB()
	debug.SetMemoryLimit(int64(limitMB) << 20)
	log.Info("Memory limit set to %d MB", limitMB)
	return limitMB
}
