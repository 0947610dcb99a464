package binding

import (
	"reflect"
	"strings"

	"github.com/preon-go/preon/pkg/resolver"
)

// StructResolver exposes every field of a fully-populated Go struct value
// as a Resolver frame in one shot, used by ObjectCodec.Encode: unlike
// decode, every field is already known up front, so there is no need to
// build the resolver chain incrementally in binding order (spec.md §4.5
// "Encode is symmetric... the resolver is backed by the value's fields").
type StructResolver struct {
	value reflect.Value
	outer resolver.Resolver
}

// NewStructResolver wraps value (a struct, or pointer to one) for lookup,
// enclosed by outer.
func NewStructResolver(value reflect.Value, outer resolver.Resolver) *StructResolver {
	for value.Kind() == reflect.Pointer {
		value = value.Elem()
	}
	return &StructResolver{value: value, outer: outer}
}

// Get implements resolver.Resolver.
func (s *StructResolver) Get(name string) (interface{}, bool) {
	f := s.value.FieldByName(name)
	if f.IsValid() {
		return f.Interface(), true
	}
	t := s.value.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.EqualFold(t.Field(i).Name, name) {
			return s.value.Field(i).Interface(), true
		}
	}
	return nil, false
}

// ResolveOuter implements resolver.Resolver.
func (s *StructResolver) ResolveOuter() (resolver.Resolver, bool) {
	if s.outer == nil {
		return nil, false
	}
	return s.outer, true
}

// OriginalResolver implements resolver.Resolver.
func (s *StructResolver) OriginalResolver() resolver.Resolver {
	if s.outer == nil {
		return s
	}
	return s.outer.OriginalResolver()
}
