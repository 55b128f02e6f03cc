// Package channel derives messaging channel identifiers.
package channel

import "fmt"

// ID returns the channel identifier for the conversation between two users.
//
// Pure and symmetric: ID(a, b) == ID(b, a). Both participants compute the
// id independently, so any asymmetry here would split the conversation.
func ID(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("match-%d-%d", a, b)
}
