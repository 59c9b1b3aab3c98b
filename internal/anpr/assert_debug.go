//go:build trackassert

package anpr

import "fmt"

// assertUnlocked fails loudly when a locked track receives a further
// state mutation. Enabled with -tags trackassert in development builds.
func assertUnlocked(id int64) {
	panic(fmt.Sprintf("anpr: state mutation on locked track %d", id))
}
