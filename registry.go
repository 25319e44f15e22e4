/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"fmt"
	"sync"
)

// Registry makes devices reachable by name, in the manner of a
// miscellaneous character-device table.
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Device
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Register adds dev under its name. Registering a name twice fails and
// the error is propagated unmodified to the caller bringing the device
// up.
func (r *Registry) Register(dev *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[dev.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDeviceExists, dev.Name())
	}
	r.devices[dev.Name()] = dev
	logger.WithField("device", dev.Name()).Info("device registered")
	return nil
}

// Deregister removes the named device.
func (r *Registry) Deregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[name]; !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	delete(r.devices, name)
	logger.WithField("device", name).Info("device deregistered")
	return nil
}

// Open opens a session on the named device.
func (r *Registry) Open(name string) (*Handle, error) {
	r.mu.Lock()
	dev, ok := r.devices[name]
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	return dev.Open()
}
