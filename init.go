/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import "os"

var (
	// True if /proc/sys/vm/unprivileged_userfaultfd == 1
	UnprivilegedUserfaultfd bool

	// Supports /dev/userfaultfd
	HaveDevUserfaultfd bool
)

func init() {
	UnprivilegedUserfaultfd = UnprivilegedUserfaultfdAllowed()

	if _, err := os.Stat("/dev/userfaultfd"); err == nil {
		HaveDevUserfaultfd = true
	}
}
