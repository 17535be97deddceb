package record

import (
	"fmt"
	"reflect"

	"github.com/karst-sim/karst/internal/keys"
)

// Bind fixes T as the element type of set. Generic front door for
// BindType.
func Bind[T any](set *Set) error {
	return set.BindType(reflect.TypeFor[T]())
}

// ValueOf returns a read-only view of the value at tag. The record
// must be materialized; initialization state is not checked, since
// reads during the initialization phase itself are legitimate.
func ValueOf[T any](set *Set, tag keys.Tag) (*T, error) {
	r, err := set.Record(tag)
	if err != nil {
		return nil, err
	}
	if r.value == nil {
		return nil, fmt.Errorf("%w: field %q tag %q", ErrUninitialized, set.key, tag)
	}
	v, ok := r.value.(*T)
	if !ok {
		return nil, fmt.Errorf("%w: field %q tag %q holds %T, want %T",
			ErrTypeMismatch, set.key, tag, r.value, (*T)(nil))
	}
	return v, nil
}

// Mutable returns a writable view of the value at tag. Only the
// record's owner may write; writing marks the record initialized.
func Mutable[T any](set *Set, tag keys.Tag, owner keys.Key) (*T, error) {
	r, err := set.Record(tag)
	if err != nil {
		return nil, err
	}
	if r.owner != owner {
		return nil, fmt.Errorf("%w: field %q tag %q owned by %q, write attempted by %q",
			ErrOwnershipViolation, set.key, tag, r.owner, owner)
	}
	if r.value == nil {
		return nil, fmt.Errorf("%w: field %q tag %q", ErrUninitialized, set.key, tag)
	}
	v, ok := r.value.(*T)
	if !ok {
		return nil, fmt.Errorf("%w: field %q tag %q holds %T, want %T",
			ErrTypeMismatch, set.key, tag, r.value, (*T)(nil))
	}
	r.initialized = true
	return v, nil
}

// storeInto writes v through p. Values that manage their own storage
// copy data in rather than replacing it, so registry storage never
// aliases a caller's buffers.
func storeInto[T any](p *T, v T) error {
	if a, ok := any(p).(assigner); ok {
		return a.AssignFrom(&v)
	}
	*p = v
	return nil
}

// SetValue writes v at tag through the ownership check.
func SetValue[T any](set *Set, tag keys.Tag, owner keys.Key, v T) error {
	p, err := Mutable[T](set, tag, owner)
	if err != nil {
		return err
	}
	return storeInto(p, v)
}

// Store writes v at tag bypassing ownership. Reserved for lifecycle
// code applying initial conditions on behalf of owners.
func Store[T any](set *Set, tag keys.Tag, v T) error {
	r, err := set.Record(tag)
	if err != nil {
		return err
	}
	if r.value == nil {
		return fmt.Errorf("%w: field %q tag %q", ErrUninitialized, set.key, tag)
	}
	p, ok := r.value.(*T)
	if !ok {
		return fmt.Errorf("%w: field %q tag %q holds %T, want %T",
			ErrTypeMismatch, set.key, tag, r.value, (*T)(nil))
	}
	if err := storeInto(p, v); err != nil {
		return err
	}
	r.initialized = true
	return nil
}
