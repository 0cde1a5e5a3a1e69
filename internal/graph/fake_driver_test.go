package graph

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// fakeDriver satisfies neo4j.DriverWithContext for the methods the pool and
// client touch outside of sessions. Any other method panics on the nil
// embedded interface.
type fakeDriver struct {
	neo4j.DriverWithContext

	verifyErr error
	closeErr  error

	mu       sync.Mutex
	verifies int
	closes   int
}

func (d *fakeDriver) VerifyConnectivity(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verifies++
	return d.verifyErr
}

func (d *fakeDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return d.closeErr
}

func (d *fakeDriver) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// countingFactory hands out fakeDrivers and counts how many it built.
type countingFactory struct {
	created   atomic.Int32
	verifyErr error

	mu      sync.Mutex
	drivers []*fakeDriver
}

func (f *countingFactory) build(uri string, auth neo4j.AuthToken, configurers ...func(*neo4j.Config)) (neo4j.DriverWithContext, error) {
	f.created.Add(1)
	d := &fakeDriver{verifyErr: f.verifyErr}

	f.mu.Lock()
	f.drivers = append(f.drivers, d)
	f.mu.Unlock()
	return d, nil
}
