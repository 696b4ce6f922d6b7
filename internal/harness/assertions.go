package harness

import (
	"fmt"
	"maps"
	"slices"
)

// evaluateAssertion checks one assertion against a finished result.
func evaluateAssertion(r *Result, a Assertion) error {
	switch a.Type {
	case AssertNotified:
		return assertNotified(r, a.Keys)
	case AssertNotifyCount:
		return assertNotifyCount(r, a.Key, a.Count)
	case AssertFinalState:
		return assertFinalState(r, a.Expect)
	case AssertWrites:
		return assertWrites(r, a.Count)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertNotified verifies the exact sequence of notified keys.
func assertNotified(r *Result, want []string) error {
	got := r.Notified()
	if !slices.Equal(got, want) {
		return fmt.Errorf("notified %v, want %v", got, want)
	}
	return nil
}

// assertNotifyCount verifies key was notified exactly count times.
func assertNotifyCount(r *Result, key string, count int) error {
	n := 0
	for _, k := range r.Notified() {
		if k == key {
			n++
		}
	}
	if n != count {
		return fmt.Errorf("key %q notified %d times, want %d", key, n, count)
	}
	return nil
}

// assertFinalState verifies the backing table holds exactly want.
func assertFinalState(r *Result, want map[string]string) error {
	if maps.Equal(r.State, want) {
		return nil
	}
	for k, v := range want {
		got, ok := r.State[k]
		if !ok {
			return fmt.Errorf("key %q missing from final state", k)
		}
		if got != v {
			return fmt.Errorf("key %q = %q, want %q", k, got, v)
		}
	}
	for k := range r.State {
		if _, ok := want[k]; !ok {
			return fmt.Errorf("unexpected key %q in final state", k)
		}
	}
	return nil
}

// assertWrites verifies the number of rows written by the store.
func assertWrites(r *Result, count int) error {
	if r.Writes < 0 {
		return fmt.Errorf("backend does not count writes")
	}
	if r.Writes != count {
		return fmt.Errorf("%d writes, want %d", r.Writes, count)
	}
	return nil
}
