package assist

import (
	"fmt"
	"testing"
	"time"
)

func TestDedupCacheSuppressesWithinBucket(t *testing.T) {
	d := NewDedupCache()
	// Bucket-aligned base keeps the pair inside one bucket.
	now := time.Unix(3000, 0)

	if !d.ShouldProcess("gti status", "bash: gti: command not found", now) {
		t.Fatal("first occurrence should process")
	}
	if d.ShouldProcess("gti status", "bash: gti: command not found", now.Add(5*time.Second)) {
		t.Error("repeat within bucket should be suppressed")
	}
}

func TestDedupCacheNewBucketProcessesAgain(t *testing.T) {
	d := NewDedupCache()
	now := time.Unix(3000, 0)

	d.ShouldProcess("gti status", "err", now)
	if !d.ShouldProcess("gti status", "err", now.Add(dedupBucketSeconds*time.Second)) {
		t.Error("next bucket should process again")
	}
}

func TestDedupCacheDistinguishesPairs(t *testing.T) {
	d := NewDedupCache()
	now := time.Unix(3000, 0)

	d.ShouldProcess("gti status", "err one", now)
	if !d.ShouldProcess("gti status", "err two", now) {
		t.Error("different error line should process")
	}
	if !d.ShouldProcess("git statsu", "err one", now) {
		t.Error("different command should process")
	}
}

func TestDedupCachePurgeCommand(t *testing.T) {
	d := NewDedupCache()
	now := time.Unix(3000, 0)

	d.ShouldProcess("gti status", "err", now)
	d.ShouldProcess("other cmd", "err", now)

	d.PurgeCommand("gti status")

	if !d.ShouldProcess("gti status", "err", now) {
		t.Error("purged command should process again")
	}
	if d.ShouldProcess("other cmd", "err", now) {
		t.Error("unrelated command keys must survive the purge")
	}
}

func TestDedupCachePurgeUnknownCommand(t *testing.T) {
	d := NewDedupCache()
	now := time.Unix(3000, 0)

	d.ShouldProcess("ls", "err", now)
	d.PurgeCommand("never seen")

	if d.Len() != 1 {
		t.Errorf("Len = %d, want 1", d.Len())
	}
}

func TestDedupCacheEvictsOldest(t *testing.T) {
	d := NewDedupCache()
	now := time.Unix(3000, 0)

	for i := 0; i < maxDedupKeys+10; i++ {
		d.ShouldProcess(fmt.Sprintf("cmd-%d", i), "err", now)
	}

	if d.Len() != maxDedupKeys {
		t.Fatalf("Len = %d, want %d", d.Len(), maxDedupKeys)
	}
	// The oldest key was evicted, so it processes again.
	if !d.ShouldProcess("cmd-0", "err", now) {
		t.Error("evicted key should process again")
	}
}
