/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

func TestBusErrorWrapping(t *testing.T) {
	err := &BusError{ErrInvalidAddress}

	if !errors.Is(err, &BusError{}) {
		t.Fatal("errors.Is failed to match BusError type")
	}
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatal("errors.Is failed to unwrap to the cause")
	}
	if errors.Is(err, ErrNoBackingStore) {
		t.Fatal("unexpected match against unrelated sentinel")
	}

	want := "bus error: fault address outside mapping"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestOutOfMemoryMatchesErrno(t *testing.T) {
	if !errors.Is(ErrOutOfMemory, unix.ENOMEM) {
		t.Fatal("ErrOutOfMemory does not match unix.ENOMEM")
	}
}

func TestPollErrorIs(t *testing.T) {
	err := &PollError{Revents: unix.POLLERR}

	// Must satisfy errors.Is for same type regardless of instance
	if !errors.Is(err, &PollError{}) {
		t.Fatal("expected errors.Is to match PollError type")
	}
	if errors.Is(err, ErrMissingIoctl) {
		t.Fatal("unexpected match against unrelated error")
	}
}

func TestPollErrorHelpers(t *testing.T) {
	e := &PollError{Revents: unix.POLLERR | unix.POLLHUP}

	if !e.IsError() {
		t.Fatal("IsError expected true")
	}
	if !e.IsHangup() {
		t.Fatal("IsHangup expected true")
	}
	if e.IsInvalid() {
		t.Fatal("IsInvalid expected false")
	}
}

func TestReventString(t *testing.T) {
	cases := []struct {
		rev  int16
		want string
	}{
		{unix.POLLIN, "POLLIN"},
		{unix.POLLOUT, "POLLOUT"},
		{unix.POLLERR, "POLLERR"},
		{unix.POLLHUP, "POLLHUP"},
		{unix.POLLNVAL, "POLLNVAL"},
		{unix.POLLERR | unix.POLLNVAL, "POLLERR|POLLNVAL"},
		{0, "0x0"},
	}

	for _, tc := range cases {
		if got := ReventString(tc.rev); got != tc.want {
			t.Fatalf("ReventString(%#x) = %q, want %q", tc.rev, got, tc.want)
		}
	}
}
