package driver

import (
	"context"
	"sync"
)

var defaults struct {
	mu       sync.Mutex
	driver   *Driver
	err      error
	detected bool
}

// Default returns the process-wide default driver, locating one on first
// use. A failed lookup is remembered until SetDefault or Init is called.
func Default(ctx context.Context) (*Driver, error) {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	if !defaults.detected {
		defaults.driver, defaults.err = FindDriver(ctx)
		defaults.detected = true
	}
	return defaults.driver, defaults.err
}

// SetDefault replaces the default driver and returns the previous one.
// Passing nil makes the next Default call search again.
func SetDefault(d *Driver) *Driver {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	prev := defaults.driver
	defaults.driver, defaults.err, defaults.detected = d, nil, d != nil
	return prev
}

// Init creates a driver for executable and installs it as the default.
func Init(ctx context.Context, executable string, opts ...Option) (*Driver, error) {
	d, err := New(ctx, executable, opts...)
	if err != nil {
		return nil, err
	}
	SetDefault(d)
	return d, nil
}
