package ident

import (
	"fmt"
	"sort"
	"strings"

	aaerrors "github.com/randalmurphal/aa/internal/errors"
)

// Observation is an identifier found on a remote task.
type Observation struct {
	TaskID     string
	Identifier Identifier
}

// Kind classifies a conflict.
type Kind string

const (
	// KindStaleCache means a remote identifier is above the cached counter
	// of its bucket.
	KindStaleCache Kind = "stale_cache"
	// KindDuplicate means two or more tasks carry the same identifier.
	KindDuplicate Kind = "duplicate"
)

// Conflict describes one mismatch between remote state and the counters.
type Conflict struct {
	Kind Kind
	// Bucket is the counter bucket key for stale conflicts ("" is the root bucket).
	Bucket      string
	Observed    int
	Cached      int
	Identifiers []Identifier
	TaskIDs     []string
}

// String renders the conflict for reports and error messages.
func (c Conflict) String() string {
	ids := make([]string, len(c.Identifiers))
	for i, id := range c.Identifiers {
		ids[i] = id.String()
	}
	switch c.Kind {
	case KindStaleCache:
		bucket := "root"
		if c.Bucket != "" && len(c.Identifiers) > 0 {
			bucket = c.Identifiers[0].Code + "-" + c.Bucket
		}
		return fmt.Sprintf("%s counter is %d but %s exists (tasks %s)",
			bucket, c.Cached, strings.Join(ids, ", "), strings.Join(c.TaskIDs, ", "))
	case KindDuplicate:
		return fmt.Sprintf("%s is used by tasks %s", ids[0], strings.Join(c.TaskIDs, ", "))
	default:
		return string(c.Kind)
	}
}

// bucketHit is one observation's component value within a bucket.
type bucketHit struct {
	value int
	obs   Observation
}

// impliedBuckets maps every bucket touched by the observations to the
// component values seen in it. PRJ-9-2 touches the root bucket with 9 and
// bucket "9" with 2.
func impliedBuckets(observed []Observation) map[string][]bucketHit {
	buckets := make(map[string][]bucketHit)
	for _, o := range observed {
		parts := o.Identifier.Parts
		for i, v := range parts {
			key := joinParts(parts[:i])
			buckets[key] = append(buckets[key], bucketHit{value: v, obs: o})
		}
	}
	return buckets
}

// DetectConflicts compares identifiers observed remotely against cached
// counters. A bucket whose observed maximum exceeds its cached counter is a
// stale-cache conflict; an identifier carried by two or more distinct tasks
// is a duplicate conflict. The result is sorted: stale conflicts by bucket,
// then duplicates by identifier.
func DetectConflicts(observed []Observation, c *Counters) []Conflict {
	var stale []Conflict
	for key, hits := range impliedBuckets(observed) {
		cached := c.Bucket(key)
		conflict := Conflict{Kind: KindStaleCache, Bucket: key, Cached: cached}
		seen := make(map[string]bool)
		for _, h := range hits {
			if h.value <= cached {
				continue
			}
			if h.value > conflict.Observed {
				conflict.Observed = h.value
			}
			// Report the identifier truncated to this bucket's level.
			full := h.obs.Identifier
			id := New(full.Code, full.Parts[:len(splitKey(key))+1]...)
			if !seen[id.String()] {
				seen[id.String()] = true
				conflict.Identifiers = append(conflict.Identifiers, id)
			}
			conflict.TaskIDs = appendUnique(conflict.TaskIDs, h.obs.TaskID)
		}
		if conflict.Observed > 0 {
			sortIdentifiers(conflict.Identifiers)
			stale = append(stale, conflict)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return compareParts(splitKey(stale[i].Bucket), splitKey(stale[j].Bucket)) < 0
	})

	byID := make(map[string][]Observation)
	var order []string
	for _, o := range observed {
		s := o.Identifier.String()
		if _, ok := byID[s]; !ok {
			order = append(order, s)
		}
		byID[s] = append(byID[s], o)
	}
	var dups []Conflict
	for _, s := range order {
		obs := byID[s]
		var tasks []string
		for _, o := range obs {
			tasks = appendUnique(tasks, o.TaskID)
		}
		if len(tasks) < 2 {
			continue
		}
		sort.Strings(tasks)
		dups = append(dups, Conflict{
			Kind:        KindDuplicate,
			Bucket:      obs[0].Identifier.ParentKey(),
			Identifiers: []Identifier{obs[0].Identifier},
			TaskIDs:     tasks,
		})
	}
	sort.Slice(dups, func(i, j int) bool {
		return compareParts(dups[i].Identifiers[0].Parts, dups[j].Identifiers[0].Parts) < 0
	})

	return append(stale, dups...)
}

// Reconcile raises every bucket touched by the observations to its observed
// maximum. Counters are never lowered. It returns the number of buckets raised.
func Reconcile(c *Counters, observed []Observation) int {
	raised := 0
	for key, hits := range impliedBuckets(observed) {
		maxSeen := 0
		for _, h := range hits {
			if h.value > maxSeen {
				maxSeen = h.value
			}
		}
		if c.raise(key, maxSeen) {
			raised++
		}
	}
	return raised
}

// CheckPolicy turns conflicts into an error according to the conflict policy:
// duplicates always fail, stale-cache conflicts fail unless ignoreStale is set.
func CheckPolicy(code string, conflicts []Conflict, ignoreStale bool) error {
	var stale, dups []string
	for _, c := range conflicts {
		switch c.Kind {
		case KindDuplicate:
			dups = append(dups, c.String())
		case KindStaleCache:
			stale = append(stale, c.String())
		}
	}
	if len(dups) > 0 {
		return aaerrors.ErrDuplicateIdentifier(code, dups)
	}
	if len(stale) > 0 && !ignoreStale {
		return aaerrors.ErrStaleCache(code, stale)
	}
	return nil
}

// HasKind reports whether any conflict is of kind k.
func HasKind(conflicts []Conflict, k Kind) bool {
	for _, c := range conflicts {
		if c.Kind == k {
			return true
		}
	}
	return false
}

func splitKey(key string) []int {
	if key == "" {
		return nil
	}
	parts, _ := ParseKey(key)
	return parts
}

// compareParts orders numeric paths component by component, shorter first on ties.
func compareParts(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

func sortIdentifiers(ids []Identifier) {
	sort.Slice(ids, func(i, j int) bool {
		return compareParts(ids[i].Parts, ids[j].Parts) < 0
	})
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
