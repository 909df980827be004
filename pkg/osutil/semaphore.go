// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"fmt"
)

// Semaphore limits the number of concurrently running heavy subprocesses
// (e.g. coverage extraction over a whole compiler build tree).
type Semaphore struct {
	ch chan struct{}
}

func NewSemaphore(count int) *Semaphore {
	if count < 1 {
		count = 1
	}
	s := &Semaphore{
		ch: make(chan struct{}, count),
	}
	for i := 0; i < count; i++ {
		s.Signal()
	}
	return s
}

func (s *Semaphore) Wait() {
	<-s.ch
}

func (s *Semaphore) Available() int {
	return len(s.ch)
}

func (s *Semaphore) Signal() {
	if av := s.Available(); av == cap(s.ch) {
		// Not super reliable, but let it be here just in case.
		panic(fmt.Sprintf("semaphore capacity (%v) is exceeded (%v)", cap(s.ch), av))
	}
	s.ch <- struct{}{}
}

// Do runs fn while holding one unit of the semaphore.
func (s *Semaphore) Do(fn func() error) error {
	s.Wait()
	defer s.Signal()
	return fn()
}
