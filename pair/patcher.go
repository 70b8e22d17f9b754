package pair

// Patcher constructs a new snapshot by applying a diff to a previous one.
// Every pair that lands in the result is deep copied, so the produced
// snapshot shares no memory with either input and can be handed to readers
// while the next settlement is already mutating its source.
func Patcher(prevState []Pair, diff SystemDiff) ([]Pair, error) {
	newState := make(map[uint64]Pair, len(prevState))
	for _, p := range prevState {
		newState[p.ID] = p.DeepCopy()
	}

	for _, id := range diff.Deletions {
		delete(newState, id)
	}
	for _, updated := range diff.Updates {
		newState[updated.ID] = updated.DeepCopy()
	}
	for _, added := range diff.Additions {
		newState[added.ID] = added.DeepCopy()
	}

	finalState := make([]Pair, 0, len(newState))
	for _, p := range newState {
		finalState = append(finalState, p)
	}
	return finalState, nil
}
