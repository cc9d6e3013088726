package publish

// Resolved is the outcome of reconciling a setting across several selected
// tasks: either every task agrees on one value, or the values diverge.
type Resolved[V comparable] struct {
	uniform  bool
	present  bool
	resolved V
}

// Uniform returns the agreed value when every input matched.
func (r Resolved[V]) Uniform() (V, bool) {
	return r.resolved, r.uniform
}

// Divergent reports whether the inputs disagreed.
func (r Resolved[V]) Divergent() bool {
	return r.present && !r.uniform
}

// Empty reports whether there were no inputs at all.
func (r Resolved[V]) Empty() bool {
	return !r.present
}

// Reconcile folds the values of one setting across a selection of tasks. A
// multi-select editor shows the uniform value directly and an indeterminate
// marker when the selection diverges.
func Reconcile[V comparable](values []V) Resolved[V] {
	if len(values) == 0 {
		return Resolved[V]{}
	}
	first := values[0]
	for _, v := range values[1:] {
		if v != first {
			return Resolved[V]{present: true}
		}
	}
	return Resolved[V]{present: true, uniform: true, resolved: first}
}
