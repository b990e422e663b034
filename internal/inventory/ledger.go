// Package inventory holds the survey item counts: for every catalog item,
// how many units go on the truck and how many go to disposal.
package inventory

import "github.com/tidwall/gjson"

// Bucket selects which counter an adjustment targets.
type Bucket string

const (
	BucketMove    Bucket = "move"
	BucketDispose Bucket = "dispose"
)

// Count carries both counters for one item. Wire names match the historical
// survey payload ("count" to move, "trash" to dispose).
type Count struct {
	ToMove    int `json:"count"`
	ToDispose int `json:"trash"`
}

// Ledger maps item id to its counters. Invariant: no negative counter, and
// no entry whose counters are both zero; such entries are removed so an
// empty ledger really is an empty map.
type Ledger map[string]Count

// New returns an empty ledger.
func New() Ledger {
	return Ledger{}
}

// Adjust applies a delta to one bucket of one item, clamping the result at
// zero and dropping the entry when both counters end up at zero. The item
// does not need to exist beforehand; the other bucket is preserved.
func (l Ledger) Adjust(itemID string, bucket Bucket, delta int) {
	c := l[itemID]
	switch bucket {
	case BucketDispose:
		c.ToDispose = clampZero(c.ToDispose + delta)
	default:
		c.ToMove = clampZero(c.ToMove + delta)
	}
	if c.ToMove == 0 && c.ToDispose == 0 {
		delete(l, itemID)
		return
	}
	l[itemID] = c
}

// Empty reports whether nothing has been counted yet.
func (l Ledger) Empty() bool {
	return len(l) == 0
}

// Units returns the total number of physical units across both buckets.
func (l Ledger) Units() int {
	n := 0
	for _, c := range l {
		n += c.ToMove + c.ToDispose
	}
	return n
}

// Clone returns an independent copy of the ledger.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for id, c := range l {
		out[id] = c
	}
	return out
}

// ParseSnapshot decodes a string-encoded inventory mapping as found in
// history rows. The payload comes from a spreadsheet cell and is not
// trusted: anything that does not parse yields an empty ledger, negative
// counters are clamped, all-zero entries are dropped.
func ParseSnapshot(s string) Ledger {
	out := New()
	if !gjson.Valid(s) {
		return out
	}
	parsed := gjson.Parse(s)
	if !parsed.IsObject() {
		return out
	}
	parsed.ForEach(func(key, value gjson.Result) bool {
		c := Count{
			ToMove:    clampZero(int(value.Get("count").Int())),
			ToDispose: clampZero(int(value.Get("trash").Int())),
		}
		if c.ToMove == 0 && c.ToDispose == 0 {
			return true
		}
		out[key.String()] = c
		return true
	})
	return out
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
