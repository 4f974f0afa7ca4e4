package toast_test

import (
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/spendlog/internal/toast"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestShow_DefaultsAndIDs(t *testing.T) {
	q := toast.NewQueue(time.Minute)
	defer q.Close()

	a := q.Show("Saved", "")
	b := q.Show("Saved", toast.Error)
	if a == b || a == "" {
		t.Fatalf("expected distinct ids, got %q %q", a, b)
	}
	list := q.List()
	if len(list) != 2 {
		t.Fatalf("expected no de-duplication, got %d toasts", len(list))
	}
	if list[0].Type != toast.Success || list[1].Type != toast.Error {
		t.Errorf("unexpected types %s %s", list[0].Type, list[1].Type)
	}
}

func TestShow_Expires(t *testing.T) {
	q := toast.NewQueue(30 * time.Millisecond)
	defer q.Close()

	q.Show("first", toast.Info)
	time.Sleep(15 * time.Millisecond)
	q.Show("second", toast.Info)

	waitFor(t, func() bool { return q.Len() <= 1 })
	if l := q.List(); len(l) == 1 && l[0].Message != "second" {
		t.Errorf("expected the older toast to expire first, got %+v", l)
	}
	waitFor(t, func() bool { return q.Len() == 0 })
}

func TestDismiss(t *testing.T) {
	q := toast.NewQueue(time.Minute)
	defer q.Close()

	id := q.Show("bye", toast.Info)
	keep := q.Show("stay", toast.Info)
	q.Dismiss(id)
	q.Dismiss("unknown")

	list := q.List()
	if len(list) != 1 || list[0].ID != keep {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestDefaultTTL(t *testing.T) {
	if toast.DefaultTTL != 3*time.Second {
		t.Errorf("DefaultTTL = %v", toast.DefaultTTL)
	}
}

func TestConcurrentShow(t *testing.T) {
	q := toast.NewQueue(time.Minute)
	defer q.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := q.Show("x", toast.Info)
			q.List()
			if i%2 == 0 {
				q.Dismiss(id)
			}
		}()
	}
	wg.Wait()
	if q.Len() != 25 {
		t.Errorf("expected 25 toasts, got %d", q.Len())
	}
}

func TestClose_StopsTimers(t *testing.T) {
	q := toast.NewQueue(10 * time.Millisecond)
	q.Show("x", toast.Info)
	q.Close()
	if q.Len() != 0 {
		t.Errorf("expected empty queue after Close, got %d", q.Len())
	}
	q.Show("after close", toast.Info)
	if q.Len() != 0 {
		t.Error("expected Show after Close to be a no-op")
	}
}
