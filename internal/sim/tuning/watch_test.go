package tuning

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeTuning(t, "view_range: 8\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Tuning, 16)
	bad := make(chan error, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, func(tu Tuning) { got <- tu }, func(err error) { bad <- err })
	}()

	// The watcher registers asynchronously; keep rewriting until a reload lands.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case tu := <-got:
			if tu.ViewRange != 12 {
				continue // caught a rewrite halfway
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("watch: %v", err)
			}
			return
		case err := <-bad:
			t.Fatalf("unexpected reload error: %v", err)
		case <-tick.C:
			if err := os.WriteFile(p, []byte("view_range: 12\n"), 0o644); err != nil {
				t.Fatalf("rewrite: %v", err)
			}
		case <-deadline:
			t.Fatalf("no reload observed")
		}
	}
}

func TestWatch_InvalidFileKeepsPrevious(t *testing.T) {
	p := writeTuning(t, "view_range: 8\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Tuning, 16)
	bad := make(chan error, 16)
	go func() {
		_ = Watch(ctx, p, func(tu Tuning) { got <- tu }, func(err error) { bad <- err })
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case tu := <-got:
			if tu.LoadRadius == 9 {
				t.Fatalf("invalid tuning delivered: %+v", tu)
			}
		case <-bad:
			return
		case <-tick.C:
			if err := os.WriteFile(p, []byte("load_radius: 9\n"), 0o644); err != nil {
				t.Fatalf("rewrite: %v", err)
			}
		case <-deadline:
			t.Fatalf("no reload error observed")
		}
	}
}
