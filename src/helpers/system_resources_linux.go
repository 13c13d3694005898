//go:build linux

package helpers

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// AvailableMemoryMB returns the cgroup v2 memory limit when one is set,
// otherwise MemTotal from /proc/meminfo. Zero means unknown.
func AvailableMemoryMB() int {
	if data, err := os.ReadFile("/sys/fs/cgroup/memory.max"); err == nil {
		if b, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64); err == nil && b > 0 {
			return int(b >> 20)
		}
	}

	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			if kb, err := strconv.Atoi(fields[1]); err == nil {
				return kb / 1024
			}
		}
	}
	return 0
}
