package service

// SideEffect outcome of one best-effort follow-up action.
type SideEffect struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Result pairs the primary value of an operation with its side-effect outcomes.
// A failed side effect never turns the operation into an error.
type Result[T any] struct {
	Primary     T            `json:"primary"`
	SideEffects []SideEffect `json:"side_effects,omitempty"`
}

func (r *Result[T]) record(name string, err error) {
	se := SideEffect{Name: name, OK: err == nil}
	if err != nil {
		se.Error = err.Error()
	}
	r.SideEffects = append(r.SideEffects, se)
}

// Degraded reports whether any side effect failed.
func (r Result[T]) Degraded() bool {
	for _, se := range r.SideEffects {
		if !se.OK {
			return true
		}
	}
	return false
}

func (r Result[T]) SideEffect(name string) (SideEffect, bool) {
	for _, se := range r.SideEffects {
		if se.Name == name {
			return se, true
		}
	}
	return SideEffect{}, false
}
