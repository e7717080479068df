// Package ptr has helpers for optional values modelled as pointers.
package ptr

// Ref returns a pointer to the value passed as argument.
//
// Might be replaced by new(T, v) in the future
// https://github.com/golang/go/issues/45624#issuecomment-2671497947
func Ref[T any](v T) *T {
	return &v
}

// Deref returns the value p points to or fallback when p is nil.
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// Clone returns a pointer to a copy of the value p points to so that the copy doesn't alias p.
func Clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
