// Package predicate provides pure boolean judgments over metric values.
//
// Numeric predicates work on any type with a Cmp method (decimal.Decimal,
// ledger.Amount). Identical works on any comparable type, typically bool.
package predicate

// Predicate judges a value. It must be total and free of side effects.
type Predicate[V any] func(V) bool

// Ordered is satisfied by types that compare themselves to a value of the
// same type, returning -1, 0 or +1.
type Ordered[T any] interface {
	Cmp(T) int
}

// Equal holds when v compares equal to x.
func Equal[V Ordered[V]](x V) Predicate[V] {
	return func(v V) bool { return v.Cmp(x) == 0 }
}

// Le holds when v <= x.
func Le[V Ordered[V]](x V) Predicate[V] {
	return func(v V) bool { return v.Cmp(x) <= 0 }
}

// Ge holds when v >= x.
func Ge[V Ordered[V]](x V) Predicate[V] {
	return func(v V) bool { return v.Cmp(x) >= 0 }
}

// Lt holds when v < x.
func Lt[V Ordered[V]](x V) Predicate[V] {
	return func(v V) bool { return v.Cmp(x) < 0 }
}

// Gt holds when v > x.
func Gt[V Ordered[V]](x V) Predicate[V] {
	return func(v V) bool { return v.Cmp(x) > 0 }
}

// Identical holds when v == x.
func Identical[V comparable](x V) Predicate[V] {
	return func(v V) bool { return v == x }
}

func Not[V any](p Predicate[V]) Predicate[V] {
	return func(v V) bool { return !p(v) }
}

// And holds when every predicate holds. And() is always true.
func And[V any](ps ...Predicate[V]) Predicate[V] {
	return func(v V) bool {
		for _, p := range ps {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Or holds when any predicate holds. Or() is always false.
func Or[V any](ps ...Predicate[V]) Predicate[V] {
	return func(v V) bool {
		for _, p := range ps {
			if p(v) {
				return true
			}
		}
		return false
	}
}
