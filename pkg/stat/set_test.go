// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	a := assert.New(t)
	set := newSet()
	a.Empty(set.Collect(All))

	v0 := set.New("v0", "desc0")
	a.Equal(0, v0.Val())
	v0.Add(1)
	a.Equal(1, v0.Val())
	v0.Add(1)
	a.Equal(2, v0.Val())

	vv1 := 0
	v1 := set.New("v1", "desc1", Console, func() int { return vv1 })
	a.Equal(0, v1.Val())
	vv1 = 11
	a.Equal(11, v1.Val())
	a.Panics(func() { v1.Add(1) })

	a.Equal([]UI{
		{Name: "v1", Desc: "desc1", Level: Console, Value: "11", V: 11},
	}, set.Collect(Console))
	a.Len(set.Collect(All), 2)

	a.Same(v0, set.New("v0", "desc0"))
}

func TestDistribution(t *testing.T) {
	set := newSet()
	v := set.New("compile time", "", Distribution{})
	a := assert.New(t)
	a.Equal(0, v.Val())
	for _, x := range []int{10, 20, 30} {
		v.Add(x)
	}
	a.Equal(20, v.Val())
}

func TestConcurrentAdd(t *testing.T) {
	set := newSet()
	v := set.New("artifacts", "")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				v.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8000, v.Val())
}

func TestAverageValue(t *testing.T) {
	var avg AverageValue[time.Duration]
	avg.Save(time.Second)
	avg.Save(3 * time.Second)
	assert.Equal(t, 2*time.Second, avg.Value())
	assert.Equal(t, int64(2), avg.Count())
}
