package core

import "fmt"

// Rows is an ordered, variable-length row set edited in place by the user.
type Rows[T any] []T

// Add appends a row.
func (r *Rows[T]) Add(v T) {
	*r = append(*r, v)
}

// Update replaces row i.
func (r Rows[T]) Update(i int, v T) error {
	if i < 0 || i >= len(r) {
		return fmt.Errorf("%w: row %d out of range (%d rows)", ErrInvalidInput, i, len(r))
	}
	r[i] = v
	return nil
}

// Remove deletes row i, keeping the order of the others.
func (r *Rows[T]) Remove(i int) error {
	if i < 0 || i >= len(*r) {
		return fmt.Errorf("%w: row %d out of range (%d rows)", ErrInvalidInput, i, len(*r))
	}
	*r = append((*r)[:i], (*r)[i+1:]...)
	return nil
}

// Clone returns an independent copy.
func (r Rows[T]) Clone() Rows[T] {
	if r == nil {
		return nil
	}
	out := make(Rows[T], len(r))
	copy(out, r)
	return out
}
