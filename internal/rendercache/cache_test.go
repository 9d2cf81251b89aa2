package rendercache

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"
	"time"

	"scadd/pkg/types"
)

func res(n int) *types.RenderResult {
	return &types.RenderResult{Bytes: bytes.Repeat([]byte{0xAB}, n), ProducedAt: time.Now()}
}

func TestGetPutRoundTrip(t *testing.T) {
	c := New(Config{MaxEntries: 4, MaxBytes: 1 << 20})
	want := res(16)
	if !c.Put("k1", want) {
		t.Fatalf("put rejected")
	}
	got, ok := c.Get("k1")
	if !ok {
		t.Fatalf("expected hit")
	}
	if !bytes.Equal(got.Bytes, want.Bytes) {
		t.Fatalf("payload mismatch")
	}
	if _, ok := c.Get("absent"); ok {
		t.Fatalf("expected miss")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 || st.SizeBytes != 16 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestEvictByCount(t *testing.T) {
	c := New(Config{MaxEntries: 3, MaxBytes: 1 << 20})
	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("k%d", i), res(8))
	}
	if got := c.Keys(); !reflect.DeepEqual(got, []string{"k4", "k3", "k2"}) {
		t.Fatalf("unexpected survivors: %v", got)
	}
}

func TestEvictByBytes(t *testing.T) {
	c := New(Config{MaxEntries: 100, MaxBytes: 100})
	c.Put("a", res(40))
	c.Put("b", res(40))
	c.Put("c", res(40)) // pushes total to 120, evicts "a"
	st := c.Stats()
	if st.SizeBytes > 100 {
		t.Fatalf("byte bound violated: %d", st.SizeBytes)
	}
	if got := c.Keys(); !reflect.DeepEqual(got, []string{"c", "b"}) {
		t.Fatalf("unexpected survivors: %v", got)
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c := New(Config{MaxEntries: 2, MaxBytes: 1 << 20})
	c.Put("a", res(8))
	c.Put("b", res(8))
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected hit")
	}
	c.Put("c", res(8)) // "b" is now the cold one
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should have survived")
	}
}

func TestOversizedEntryRejected(t *testing.T) {
	c := New(Config{MaxEntries: 4, MaxBytes: 100})
	c.Put("small", res(10))
	if c.Put("huge", res(101)) {
		t.Fatalf("oversized put should be rejected")
	}
	// The rejection must not disturb existing entries.
	if _, ok := c.Get("small"); !ok {
		t.Fatalf("existing entry lost")
	}
	if st := c.Stats(); st.Entries != 1 || st.SizeBytes != 10 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestReplaceExistingKey(t *testing.T) {
	c := New(Config{MaxEntries: 4, MaxBytes: 1 << 20})
	c.Put("k", res(10))
	c.Put("k", res(30))
	st := c.Stats()
	if st.Entries != 1 || st.SizeBytes != 30 {
		t.Fatalf("unexpected stats after replace: %+v", st)
	}
}

func TestClear(t *testing.T) {
	c := New(Config{MaxEntries: 4, MaxBytes: 1 << 20})
	c.Put("a", res(8))
	c.Put("b", res(8))
	c.Clear()
	st := c.Stats()
	if st.Entries != 0 || st.SizeBytes != 0 {
		t.Fatalf("clear left entries: %+v", st)
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("entry survived clear")
	}
}

func TestBoundsHoldAfterEveryMutation(t *testing.T) {
	c := New(Config{MaxEntries: 5, MaxBytes: 200})
	for i := 0; i < 50; i++ {
		c.Put(fmt.Sprintf("k%d", i), res(1+i%60))
		st := c.Stats()
		if st.Entries > 5 || st.SizeBytes > 200 {
			t.Fatalf("bounds violated at step %d: %+v", i, st)
		}
	}
}
