// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pworker_test

import (
	"sync"
	"testing"

	"github.com/yunshuwu/parlaylib/internal/pworker"
)

func TestWorkerIDWithinRange(t *testing.T) {
	n := pworker.NumWorkers()
	if n < 1 {
		t.Fatalf("NumWorkers() = %d, want >= 1", n)
	}

	id := pworker.WorkerID()
	defer pworker.Release()
	if id < 0 || id >= n {
		t.Fatalf("WorkerID() = %d, want in [0, %d)", id, n)
	}
}

func TestWorkerIDManyGoroutines(t *testing.T) {
	n := pworker.NumWorkers()

	const goroutines = 64
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			id := pworker.WorkerID()
			defer pworker.Release()
			if id < 0 || id >= n {
				t.Errorf("WorkerID() = %d, want in [0, %d)", id, n)
			}
		}()
	}
	wg.Wait()
}

func TestReserveWithinRange(t *testing.T) {
	n := pworker.NumWorkers()

	id, release := pworker.Reserve()
	defer release()
	if id < 0 || id >= n {
		t.Fatalf("Reserve() id = %d, want in [0, %d)", id, n)
	}
}

func TestReserveManyConcurrent(t *testing.T) {
	n := pworker.NumWorkers()

	const goroutines = 64
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			id, release := pworker.Reserve()
			defer release()
			if id < 0 || id >= n {
				t.Errorf("Reserve() id = %d, want in [0, %d)", id, n)
			}
		}()
	}
	wg.Wait()
}

func TestNumWorkersStable(t *testing.T) {
	a := pworker.NumWorkers()
	b := pworker.NumWorkers()
	if a != b {
		t.Fatalf("NumWorkers() not stable across calls: %d then %d", a, b)
	}
}
