//go:build !linux

package helpers

// AvailableMemoryMB is unknown outside Linux; callers use the fallback limit.
func AvailableMemoryMB() int {
	return 0
}
