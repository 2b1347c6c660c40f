// Package util holds small generic helpers shared across packages.
package util

// Must unwraps a (value, error) pair, panicking when the error is non-nil.
// Reserved for initialization paths where failure indicates a programming
// error rather than a runtime condition.
func Must[T any](t T, err error) T {
	MustSucceed(err)
	return t
}

// MustSucceed panics when err is non-nil.
func MustSucceed(err error) {
	if err != nil {
		panic(err)
	}
}
