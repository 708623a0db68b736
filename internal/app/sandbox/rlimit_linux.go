package sandbox

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// limitMemory caps the address space at what the process already maps plus
// extra bytes. The Go runtime reserves a large address range up front, so a
// fixed cap would either starve it at startup or leave the script unbounded.
func limitMemory(extra int64) error {
	base, err := mappedBytes()
	if err != nil {
		return err
	}
	limit := uint64(base + extra)
	if err := unix.Setrlimit(unix.RLIMIT_AS, &unix.Rlimit{Cur: limit, Max: limit}); err != nil {
		return fmt.Errorf("set rlimit as: %w", err)
	}
	return nil
}

func mappedBytes() (int64, error) {
	raw, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, fmt.Errorf("read statm: %w", err)
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return 0, fmt.Errorf("read statm: empty")
	}
	pages, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse statm: %w", err)
	}
	return pages * int64(os.Getpagesize()), nil
}
