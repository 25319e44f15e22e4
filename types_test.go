/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"testing"
	"unsafe"
)

func TestStructSizes(t *testing.T) {
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"UffdMsg", unsafe.Sizeof(UffdMsg{}), 32},
		{"UffdioApi", unsafe.Sizeof(UffdioApi{}), 24},
		{"UffdioCopy", unsafe.Sizeof(UffdioCopy{}), 40},
		{"UffdioPoison", unsafe.Sizeof(UffdioPoison{}), 32},
		{"UffdioRange", unsafe.Sizeof(UffdioRange{}), 16},
		{"UffdioRegister", unsafe.Sizeof(UffdioRegister{}), 32},
		{"UffdioZeropage", unsafe.Sizeof(UffdioZeropage{}), 32},
		{"UffdMsgPagefault", unsafe.Sizeof(UffdMsgPagefault{}), 24},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s size = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

// ioc encodes an ioctl request number the way asm-generic does, to
// cross-check the precomputed constants against the wrapped struct
// sizes.
func ioc(dir, nr, size uintptr) uintptr {
	const uffdio = 0xAA
	return dir<<30 | size<<16 | uffdio<<8 | nr
}

func TestIoctlRequestNumbers(t *testing.T) {
	const (
		iocWrite = 1
		iocRead  = 2
	)

	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"UFFDIO_API", UFFDIO_API, ioc(iocRead|iocWrite, 0x3F, unsafe.Sizeof(UffdioApi{}))},
		{"UFFDIO_REGISTER", UFFDIO_REGISTER, ioc(iocRead|iocWrite, 0x00, unsafe.Sizeof(UffdioRegister{}))},
		{"UFFDIO_UNREGISTER", UFFDIO_UNREGISTER, ioc(iocRead, 0x01, unsafe.Sizeof(UffdioRange{}))},
		{"UFFDIO_WAKE", UFFDIO_WAKE, ioc(iocRead, 0x02, unsafe.Sizeof(UffdioRange{}))},
		{"UFFDIO_COPY", UFFDIO_COPY, ioc(iocRead|iocWrite, 0x03, unsafe.Sizeof(UffdioCopy{}))},
		{"UFFDIO_ZEROPAGE", UFFDIO_ZEROPAGE, ioc(iocRead|iocWrite, 0x04, unsafe.Sizeof(UffdioZeropage{}))},
		{"UFFDIO_POISON", UFFDIO_POISON, ioc(iocRead|iocWrite, 0x08, unsafe.Sizeof(UffdioPoison{}))},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %#x, want %#x", tt.name, tt.got, tt.want)
		}
	}
}
