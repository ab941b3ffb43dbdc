package frame

import (
	"sync"
	"testing"
)

type params struct {
	zoom float32
	n    int
}

func TestTakeEmpty(t *testing.T) {
	var tok Token[params]
	if _, ok := tok.Take(); ok {
		t.Error("Take on empty token returned params")
	}
	if tok.Pending() {
		t.Error("empty token reports pending")
	}
}

func TestLastWriteWins(t *testing.T) {
	var tok Token[params]
	tok.Set(params{zoom: 1})
	tok.Set(params{zoom: 2})
	tok.Set(params{zoom: 3})

	got, ok := tok.Take()
	if !ok || got.zoom != 3 {
		t.Errorf("Take = %+v, %v; want zoom 3", got, ok)
	}
	if _, ok := tok.Take(); ok {
		t.Error("second Take returned params")
	}
}

func TestSetCopies(t *testing.T) {
	var tok Token[params]
	p := params{zoom: 1}
	tok.Set(p)
	p.zoom = 9

	got, _ := tok.Take()
	if got.zoom != 1 {
		t.Errorf("Take = %+v, token aliases caller value", got)
	}
}

func TestSetDuringDrawIsConsumedNextTick(t *testing.T) {
	var tok Token[params]
	tok.Set(params{n: 1})

	if _, ok := tok.Take(); !ok {
		t.Fatal("expected params")
	}
	tok.Begin()
	tok.Set(params{n: 2})
	tok.End()

	got, ok := tok.Take()
	if !ok || got.n != 2 {
		t.Errorf("next tick Take = %+v, %v", got, ok)
	}
}

func TestConcurrentSetsConsumedOnce(t *testing.T) {
	var tok Token[params]
	const writers, perWriter = 8, 500

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				tok.Set(params{n: w*perWriter + i})
			}
		}(w)
	}

	seen := make(map[int]bool)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			if p, ok := tok.Take(); ok {
				if seen[p.n] {
					t.Fatalf("params %d taken twice", p.n)
				}
			}
			if tok.Pending() {
				t.Error("token still pending after final take")
			}
			return
		default:
			if p, ok := tok.Take(); ok {
				if seen[p.n] {
					t.Fatalf("params %d taken twice", p.n)
				}
				seen[p.n] = true
			}
		}
	}
}

func TestState(t *testing.T) {
	var tok Token[params]
	if tok.State() != Idle {
		t.Errorf("initial state = %v", tok.State())
	}
	tok.Begin()
	if tok.State() != Drawing || tok.State().String() != "drawing" {
		t.Errorf("state = %v", tok.State())
	}
	tok.End()
	if tok.State() != Idle {
		t.Errorf("state = %v", tok.State())
	}
}
