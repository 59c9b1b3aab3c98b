package anpr

// Fuse merges two independent recognition candidates into one decision.
// The candidate with strictly higher confidence wins; the first
// candidate wins ties, so fusion is deterministic and order-respecting.
// Normalization is applied to the winner only.
func Fuse(a, b Candidate) Candidate {
	winner := a
	if b.Confidence > a.Confidence {
		winner = b
	}
	winner.Text = NormalizePlate(winner.Text)
	return winner
}
