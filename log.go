/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Hook-entry diagnostics are discarded unless a caller installs a
// logger. The original device printed every callback entry; Debug level
// preserves that trace without taxing the fault path by default.
var logger = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SetLogger routes package diagnostics to l. Passing nil restores the
// default discarding logger.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = newDiscardLogger()
	}
	logger = l
}
