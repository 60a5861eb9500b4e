// Package guard holds the request guards and the per-game lock that
// serialises purchases, prize awards and cancellation of one game.
package guard

// Result is the outcome of a guard check.
type Result struct {
	Allowed bool
	Reason  string
	Guard   string
}
