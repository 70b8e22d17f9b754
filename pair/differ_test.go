package pair

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotPair(t *testing.T, id uint64, reserve0, reserve1, supply int64) Pair {
	t.Helper()
	p := initializedPair(t, reserve0, reserve1, supply)
	p.ID = id
	return *p
}

func TestDiffer(t *testing.T) {
	t.Run("identical snapshots produce an empty diff", func(t *testing.T) {
		old := []Pair{snapshotPair(t, 1, 100, 200, 140)}
		new := []Pair{snapshotPair(t, 1, 100, 200, 140)}

		diff := Differ(old, new)
		assert.True(t, diff.IsEmpty())
	})

	t.Run("classifies additions, updates and deletions", func(t *testing.T) {
		old := []Pair{
			snapshotPair(t, 1, 100, 200, 140),
			snapshotPair(t, 2, 300, 400, 340),
			snapshotPair(t, 3, 500, 600, 540),
		}

		updated := snapshotPair(t, 2, 310, 395, 340) // reserves moved
		added := snapshotPair(t, 4, 700, 800, 740)
		new := []Pair{
			snapshotPair(t, 1, 100, 200, 140), // unchanged
			updated,
			added,
			// pair 3 gone
		}

		diff := Differ(old, new)
		require.Len(t, diff.Additions, 1)
		assert.Equal(t, uint64(4), diff.Additions[0].ID)
		require.Len(t, diff.Updates, 1)
		assert.Equal(t, uint64(2), diff.Updates[0].ID)
		require.Len(t, diff.Deletions, 1)
		assert.Equal(t, uint64(3), diff.Deletions[0])
	})

	t.Run("detects every settlement-movable field", func(t *testing.T) {
		mutations := map[string]func(p *Pair){
			"reserve0":    func(p *Pair) { p.Reserve0 = big.NewInt(101) },
			"reserve1":    func(p *Pair) { p.Reserve1 = big.NewInt(201) },
			"totalSupply": func(p *Pair) { p.TotalSupply = big.NewInt(141) },
			"timestamp":   func(p *Pair) { p.BlockTimestampLast = 999 },
			"cumulative0": func(p *Pair) { p.Price0CumulativeLast.SetUint64(7) },
			"cumulative1": func(p *Pair) { p.Price1CumulativeLast.SetUint64(7) },
			"fee":         func(p *Pair) { p.Fee.CurrentFeeBps = 77 },
			"flashLock":   func(p *Pair) { p.Flash.Locked = true },
		}

		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				old := snapshotPair(t, 1, 100, 200, 140)
				new := old.DeepCopy()
				mutate(&new)

				diff := Differ([]Pair{old}, []Pair{new})
				require.Len(t, diff.Updates, 1, "mutation of %s not detected", name)
			})
		}
	})
}

func TestPatcher(t *testing.T) {
	t.Run("applying a diff reproduces the target snapshot", func(t *testing.T) {
		old := []Pair{
			snapshotPair(t, 1, 100, 200, 140),
			snapshotPair(t, 2, 300, 400, 340),
		}
		target := []Pair{
			snapshotPair(t, 1, 110, 190, 140), // updated
			snapshotPair(t, 5, 900, 901, 900), // added
			// pair 2 deleted
		}

		diff := Differ(old, target)
		patched, err := Patcher(old, diff)
		require.NoError(t, err)

		// Patched and target must diff to nothing.
		assert.True(t, Differ(patched, target).IsEmpty())
		assert.True(t, Differ(target, patched).IsEmpty())
	})

	t.Run("result shares no memory with its inputs", func(t *testing.T) {
		old := []Pair{snapshotPair(t, 1, 100, 200, 140)}
		update := snapshotPair(t, 1, 150, 180, 140)
		diff := SystemDiff{Updates: []Pair{update}}

		patched, err := Patcher(old, diff)
		require.NoError(t, err)
		require.Len(t, patched, 1)

		patched[0].Reserve0.Add(patched[0].Reserve0, big.NewInt(1_000_000))
		assert.Zero(t, old[0].Reserve0.Cmp(big.NewInt(100)), "input snapshot mutated through the patch result")
		assert.Zero(t, update.Reserve0.Cmp(big.NewInt(150)), "diff mutated through the patch result")
	})

	t.Run("empty diff is an identity", func(t *testing.T) {
		old := []Pair{snapshotPair(t, 1, 100, 200, 140)}

		patched, err := Patcher(old, SystemDiff{})
		require.NoError(t, err)
		assert.True(t, Differ(old, patched).IsEmpty())
	})
}
