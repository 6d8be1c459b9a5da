// Package testutil carries small helpers shared by the test suites.
package testutil

import "testing"

// Given, When and Then name the stages of a flow test so failure output
// reads as a scenario. Each stage reports whether it passed, letting a
// caller stop a flow whose precondition already failed.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return stage(t, "Given ", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return stage(t, "When ", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return stage(t, "Then ", desc, fn)
}

func stage(t *testing.T, prefix, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(prefix+desc, fn)
}
