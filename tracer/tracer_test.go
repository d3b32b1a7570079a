// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package tracer

import (
	"fmt"
	"sync"
	"testing"
)

// Exercised under the race detector: Log and Flush share the trace
// slice across goroutines, as concurrent extraction calls do.
func TestLog_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				Log(fmt.Sprintf("goroutine %d message %d", id, i))
			}
		}(g)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		Flush()
	}()
	wg.Wait()
	Flush()
}
