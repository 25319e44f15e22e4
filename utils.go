/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// UnprivilegedUserfaultfdAllowed returns true if
// /proc/sys/vm/unprivileged_userfaultfd contains 1
func UnprivilegedUserfaultfdAllowed() bool {
	data, err := os.ReadFile("/proc/sys/vm/unprivileged_userfaultfd")
	if err != nil {
		return false
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	return v == 1
}

func retryOnEINTR(fn func() error) error {
	for {
		err := fn()
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// roundUp rounds n up to the next multiple of align. align must be a
// power of two.
func roundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
