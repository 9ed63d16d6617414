// internal/coalesce/coalesce_test.go
package coalesce

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoSharesConcurrentCalls(t *testing.T) {
	g := New(0)

	var calls int64
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := g.Do("status:user-1", func() (interface{}, error) {
				atomic.AddInt64(&calls, 1)
				<-release
				return "complete", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "complete", v)
		}()
	}

	// Give the goroutines time to pile up behind the first call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestDoReplaysWithinTTL(t *testing.T) {
	g := New(time.Minute)

	var calls int64
	fn := func() (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		return 42, nil
	}

	v1, err1 := g.Do("k", fn)
	v2, err2 := g.Do("k", fn)

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, 42, v1)
	assert.Equal(t, 42, v2)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestDoReplaysErrors(t *testing.T) {
	g := New(time.Minute)

	wantErr := errors.New("upstream unavailable")
	var calls int64
	fn := func() (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		return nil, wantErr
	}

	_, err1 := g.Do("k", fn)
	_, err2 := g.Do("k", fn)

	assert.Equal(t, wantErr, err1)
	assert.Equal(t, wantErr, err2)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestDoReexecutesAfterTTL(t *testing.T) {
	g := New(10 * time.Millisecond)

	var calls int64
	fn := func() (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		return "v", nil
	}

	g.Do("k", fn)
	time.Sleep(25 * time.Millisecond)
	g.Do("k", fn)

	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestForgetInvalidates(t *testing.T) {
	g := New(time.Minute)

	var calls int64
	fn := func() (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		return "v", nil
	}

	g.Do("k", fn)
	g.Forget("k")
	g.Do("k", fn)

	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestKeysAreIndependent(t *testing.T) {
	g := New(time.Minute)

	var calls int64
	fn := func() (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		return "v", nil
	}

	g.Do("a", fn)
	g.Do("b", fn)

	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}
