package modelcache

import (
	"sync"
	"sync/atomic"
	"testing"

	"fmigo/internal/modeldesc"
)

func TestGetOrLoadMemoizes(t *testing.T) {
	Reset()
	var calls int32

	load := func() (*modeldesc.Description, error) {
		atomic.AddInt32(&calls, 1)
		return &modeldesc.Description{ModelName: "m"}, nil
	}

	for i := 0; i < 5; i++ {
		desc, err := GetOrLoad("m", load)
		if err != nil {
			t.Fatalf("GetOrLoad: %v", err)
		}
		if desc.ModelName != "m" {
			t.Fatalf("ModelName = %q, want %q", desc.ModelName, "m")
		}
	}
	if calls != 1 {
		t.Fatalf("load called %d times, want 1", calls)
	}
}

func TestGetOrLoadSerializesConcurrentMisses(t *testing.T) {
	Reset()
	var calls int32
	load := func() (*modeldesc.Description, error) {
		atomic.AddInt32(&calls, 1)
		return &modeldesc.Description{ModelName: "concurrent"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := GetOrLoad("concurrent", load); err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("load called %d times under concurrent access, want 1", calls)
	}
}
