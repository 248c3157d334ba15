package rest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/device"
)

// scriptedLister returns its queued results in order, repeating the
// last one once the script is exhausted.
type scriptedLister struct {
	mu      sync.Mutex
	results []func() ([]Snapshot, error)
	calls   int
}

func (l *scriptedLister) ListDevices(context.Context) ([]Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	index := l.calls
	if index >= len(l.results) {
		index = len(l.results) - 1
	}
	l.calls++
	return l.results[index]()
}

func (l *scriptedLister) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func testSnapshot(id string) Snapshot {
	return Snapshot{
		Metadata: device.Metadata{DeviceID: id, Model: "H7141"},
		State:    map[string]any{"isOn": 1},
	}
}

func TestPoller_DeliversSnapshots(t *testing.T) {
	lister := &scriptedLister{results: []func() ([]Snapshot, error){
		func() ([]Snapshot, error) { return []Snapshot{testSnapshot("dev-1")}, nil },
	}}

	received := make(chan Snapshot, 8)
	poller := NewPoller(lister, PollerConfig{
		Interval: 10 * time.Millisecond,
		Handler:  func(s Snapshot) { received <- s },
	})
	if err := poller.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer poller.Stop()

	// First poll is immediate; a second arrives on the ticker.
	for i := 0; i < 2; i++ {
		select {
		case snapshot := <-received:
			if snapshot.Metadata.DeviceID != "dev-1" {
				t.Errorf("snapshot device = %q", snapshot.Metadata.DeviceID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestPoller_FailedPollRetriesNextTick(t *testing.T) {
	lister := &scriptedLister{results: []func() ([]Snapshot, error){
		func() ([]Snapshot, error) { return nil, errors.New("network down") },
		func() ([]Snapshot, error) { return []Snapshot{testSnapshot("dev-2")}, nil },
	}}

	received := make(chan Snapshot, 8)
	poller := NewPoller(lister, PollerConfig{
		Interval: 10 * time.Millisecond,
		Handler:  func(s Snapshot) { received <- s },
	})
	if err := poller.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer poller.Stop()

	select {
	case snapshot := <-received:
		if snapshot.Metadata.DeviceID != "dev-2" {
			t.Errorf("snapshot device = %q", snapshot.Metadata.DeviceID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not recover after a failed poll")
	}
}

func TestPoller_PollOnDemand(t *testing.T) {
	lister := &scriptedLister{results: []func() ([]Snapshot, error){
		func() ([]Snapshot, error) { return []Snapshot{testSnapshot("dev-3")}, nil },
	}}

	var got []Snapshot
	poller := NewPoller(lister, PollerConfig{
		Handler: func(s Snapshot) { got = append(got, s) },
	})

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(got) != 1 || got[0].Metadata.DeviceID != "dev-3" {
		t.Fatalf("Poll() delivered %v", got)
	}
}

func TestPoller_StopTerminatesLoop(t *testing.T) {
	lister := &scriptedLister{results: []func() ([]Snapshot, error){
		func() ([]Snapshot, error) { return nil, nil },
	}}

	poller := NewPoller(lister, PollerConfig{Interval: 5 * time.Millisecond})
	if err := poller.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	poller.Stop()
	poller.Stop() // idempotent

	calls := lister.callCount()
	time.Sleep(30 * time.Millisecond)
	if after := lister.callCount(); after != calls {
		t.Errorf("poller kept polling after Stop: %d -> %d calls", calls, after)
	}

	if err := poller.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("Start() after Stop error = %v, want ErrStopped", err)
	}
}
