package worker

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllTasks(t *testing.T) {
	pool := NewPool(3)
	defer pool.Close()

	var count atomic.Int64
	for range 20 {
		if err := pool.Submit(func() error {
			count.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got := count.Load(); got != 20 {
		t.Errorf("Got %d executed tasks, want 20", got)
	}
}

func TestPoolCollectsErrors(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	boom := errors.New("boom")
	_ = pool.Submit(func() error { return nil })
	_ = pool.Submit(func() error { return boom })
	_ = pool.Submit(func() error { return boom })

	err := pool.Wait()
	if !errors.Is(err, boom) {
		t.Fatalf("Expected joined error to contain boom, got: %v", err)
	}

	// Errors are consumed by Wait; the next batch starts clean.
	_ = pool.Submit(func() error { return nil })
	if err := pool.Wait(); err != nil {
		t.Errorf("Expected clean second batch, got: %v", err)
	}
}

func TestPoolReusableAcrossBatches(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	var count atomic.Int64
	for range 3 {
		for range 5 {
			if err := pool.Submit(func() error {
				count.Add(1)
				return nil
			}); err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
		}
		if err := pool.Wait(); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	if got := count.Load(); got != 15 {
		t.Errorf("Got %d executed tasks, want 15", got)
	}
}

func TestPoolRejectsAfterClose(t *testing.T) {
	pool := NewPool(1)
	if err := pool.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := pool.Submit(func() error { return nil }); err == nil {
		t.Fatal("Expected Submit on closed pool to fail")
	}
	// Double close is harmless.
	if err := pool.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestPoolRejectsNilTask(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()
	if err := pool.Submit(nil); err == nil {
		t.Fatal("Expected Submit(nil) to fail")
	}
}

func TestSessionClosesPoolOnce(t *testing.T) {
	pool := NewPool(2)
	session := NewSession(pool)
	if session.Pool() != pool {
		t.Fatal("Session should expose the wrapped pool")
	}

	var count atomic.Int64
	_ = session.Pool().Submit(func() error {
		count.Add(1)
		return nil
	})
	if err := session.Pool().Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if got := count.Load(); got != 1 {
		t.Errorf("Got %d executed tasks, want 1", got)
	}
}
