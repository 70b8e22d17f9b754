package pair

// Schema is the decode contract for a pair-state snapshot carried over the
// state stream.
const Schema = "coralswap/pairView@v1"

// SystemDiff summarizes the change between two pair-state snapshots.
type SystemDiff struct {
	Additions []Pair   `json:"additions,omitempty"`
	Updates   []Pair   `json:"updates,omitempty"`
	Deletions []uint64 `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d SystemDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// changed compares the fields a settlement can move. Manual field checks
// beat reflect.DeepEqual by a wide margin on hot snapshots, and pointer
// values need Cmp/Eq rather than interface equality anyway.
func changed(old, new Pair) bool {
	if old.Reserve0.Cmp(new.Reserve0) != 0 || old.Reserve1.Cmp(new.Reserve1) != 0 {
		return true
	}
	if old.TotalSupply.Cmp(new.TotalSupply) != 0 {
		return true
	}
	if old.BlockTimestampLast != new.BlockTimestampLast {
		return true
	}
	if !old.Price0CumulativeLast.Eq(new.Price0CumulativeLast) || !old.Price1CumulativeLast.Eq(new.Price1CumulativeLast) {
		return true
	}
	if old.Fee != new.Fee || old.Flash != new.Flash {
		return true
	}
	return false
}

// Differ calculates the difference between two pair-state snapshots. Both
// slices are indexed by pair ID first so each membership probe is O(1):
// additions and updates fall out of walking the new map, deletions out of
// walking the old one.
func Differ(old, new []Pair) SystemDiff {
	oldPairs := make(map[uint64]Pair, len(old))
	for _, p := range old {
		oldPairs[p.ID] = p
	}
	newPairs := make(map[uint64]Pair, len(new))
	for _, p := range new {
		newPairs[p.ID] = p
	}

	var additions []Pair
	var updates []Pair
	var deletions []uint64

	for id, newPair := range newPairs {
		oldPair, exists := oldPairs[id]
		if !exists {
			additions = append(additions, newPair)
		} else if changed(oldPair, newPair) {
			updates = append(updates, newPair)
		}
	}
	for id := range oldPairs {
		if _, exists := newPairs[id]; !exists {
			deletions = append(deletions, id)
		}
	}

	return SystemDiff{
		Additions: additions,
		Updates:   updates,
		Deletions: deletions,
	}
}
