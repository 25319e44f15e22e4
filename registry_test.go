/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"errors"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	dev := NewDevice("my_mmap")

	if err := r.Register(dev); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	h, err := r.Open("my_mmap")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if h.Device() != dev {
		t.Fatal("Open returned a handle on the wrong device")
	}
	h.Close()

	if err := r.Deregister("my_mmap"); err != nil {
		t.Fatalf("Deregister failed: %v", err)
	}
	if _, err := r.Open("my_mmap"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("Open after deregister: err = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(NewDevice("my_mmap")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(NewDevice("my_mmap")); !errors.Is(err, ErrDeviceExists) {
		t.Fatalf("duplicate Register: err = %v, want ErrDeviceExists", err)
	}
}

func TestDeregisterUnknown(t *testing.T) {
	r := NewRegistry()

	if err := r.Deregister("nope"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("Deregister unknown: err = %v, want ErrDeviceNotFound", err)
	}
}
