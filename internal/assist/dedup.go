package assist

import (
	"time"
)

// dedupBucketSeconds is the rolling window used to coalesce repeated
// identical failures into a single suggestion request.
const dedupBucketSeconds = 30

// maxDedupKeys caps total recorded keys per session so long-running sessions
// stay bounded; oldest keys are evicted first.
const maxDedupKeys = 512

type dedupKey struct {
	command   string
	errorLine string
	bucket    int64
}

// DedupCache suppresses repeat processing of the same (command, error) pair
// within a time bucket. It is not safe for concurrent use; the pipeline
// serializes access under its own lock.
type DedupCache struct {
	keys  map[dedupKey]struct{}
	order []dedupKey
}

// NewDedupCache creates an empty dedup cache.
func NewDedupCache() *DedupCache {
	return &DedupCache{
		keys: make(map[dedupKey]struct{}),
	}
}

// ShouldProcess reports whether the (command, errorLine) pair is novel in
// the current time bucket, recording the key as a side effect when it is.
func (d *DedupCache) ShouldProcess(command, errorLine string, now time.Time) bool {
	key := dedupKey{
		command:   command,
		errorLine: errorLine,
		bucket:    now.Unix() / dedupBucketSeconds,
	}

	if _, seen := d.keys[key]; seen {
		return false
	}

	d.keys[key] = struct{}{}
	d.order = append(d.order, key)
	for len(d.order) > maxDedupKeys {
		delete(d.keys, d.order[0])
		d.order = d.order[1:]
	}
	return true
}

// PurgeCommand drops every key scoped to the given command, keeping keys for
// other commands intact. Called on command change so a new command's errors
// are never suppressed by stale state, and on command-not-found evidence so
// repeated attempts to run a still-missing command always re-request
// suggestions.
func (d *DedupCache) PurgeCommand(command string) {
	kept := d.order[:0]
	for _, key := range d.order {
		if key.command == command {
			delete(d.keys, key)
			continue
		}
		kept = append(kept, key)
	}
	d.order = kept
}

// Len returns the number of recorded keys.
func (d *DedupCache) Len() int {
	return len(d.keys)
}
