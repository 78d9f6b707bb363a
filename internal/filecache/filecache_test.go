package filecache

import "testing"

func TestGetPutFileRoundTrip(t *testing.T) {
	c := New(Config{})

	if _, ok := c.GetFile("a.go"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.PutFile("a.go", []byte("package a"))

	data, ok := c.GetFile("a.go")
	if !ok {
		t.Fatal("expected hit after put")
	}
	if string(data) != "package a" {
		t.Fatalf("got %q", data)
	}

	stats := c.Stats()
	if stats.Small.Hits != 1 || stats.Small.Misses != 1 {
		t.Fatalf("unexpected small tier stats: %+v", stats.Small)
	}
}

func TestTierRoutingBySize(t *testing.T) {
	c := New(Config{SmallThresholdBytes: 10, MediumThresholdBytes: 100, LargeThresholdBytes: 1000})

	c.PutFile("small.txt", make([]byte, 5))
	c.PutFile("medium.txt", make([]byte, 50))
	c.PutFile("large.txt", make([]byte, 500))
	c.PutFile("too_big.txt", make([]byte, 5000))

	if _, ok := c.GetFile("small.txt"); !ok {
		t.Error("small file should be cached")
	}
	if _, ok := c.GetFile("medium.txt"); !ok {
		t.Error("medium file should be cached")
	}
	if _, ok := c.GetFile("large.txt"); !ok {
		t.Error("large file should be cached")
	}
	if _, ok := c.GetFile("too_big.txt"); ok {
		t.Error("oversized file should not be cached")
	}
}

func TestInvalidatePrefixRemovesStaleEntry(t *testing.T) {
	c := New(Config{})
	c.PutFile("src/lib.rs", []byte("fn old() {}"))

	c.InvalidatePrefix("src/lib.rs")

	if _, ok := c.GetFile("src/lib.rs"); ok {
		t.Fatal("expected cache miss after invalidation")
	}
}

func TestDirListingTierIsIndependent(t *testing.T) {
	c := New(Config{})
	key := DirKey("/workspace/src", 100, false)
	c.PutDirListing(key, []byte(`["a.go","b.go"]`))

	if _, ok := c.GetDirListing(key); !ok {
		t.Fatal("expected directory listing hit")
	}
	if _, ok := c.GetFile(key); ok {
		t.Fatal("directory tier must not leak into the file tiers")
	}
}

func TestEvictionUnderMemoryPressurePreservesHighPriority(t *testing.T) {
	c := New(Config{
		SmallThresholdBytes:  1,
		MediumThresholdBytes: 1 << 20,
		MaxMemoryUsageBytes:  1024,
		MediumTTL:            0,
	})
	c.cfg.MediumTTL = 300_000_000_000 // keep TTL generous; exercise priority branch only

	hot := make([]byte, 100)
	cold := make([]byte, 100)
	c.PutFile("hot.txt", hot)
	c.PutFile("cold.txt", cold)

	// Access "hot" enough times to earn high priority before pressure hits.
	for i := 0; i < 12; i++ {
		c.GetFile("hot.txt")
	}

	for i := 0; i < 20; i++ {
		c.PutFile("filler"+itoa(i)+".txt", make([]byte, 100))
	}

	if _, ok := c.GetFile("hot.txt"); !ok {
		t.Error("high-priority entry should survive eviction while low-priority entries remain")
	}
}
