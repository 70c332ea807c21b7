package cachedresource

import (
	"github.com/goccy/go-reflect"
)

// ValueCloner is an interface for cloning values.
// It is used to clone values when they are stored in or read from a
// cache backend, so that callers cannot mutate cached state through
// shared references. The CloneValue method should return a deep copy of
// the input value.
type ValueCloner interface {
	CloneValue(v any) any
}

// ValueClonerFunc is a function type that implements the ValueCloner interface.
type ValueClonerFunc func(v any) any

// CloneValue calls the function.
func (f ValueClonerFunc) CloneValue(v any) any {
	return f(v)
}

// NopValueCloner is a value cloner that does not clone values.
// It is used when values do not need to be cloned. (e.g. when the values are primitive types or immutable usage)
type NopValueCloner struct{}

// CloneValue returns the input value.
func (NopValueCloner) CloneValue(v any) any {
	return v
}

// ReflectValueCloner clones values by reflection.
// If the value has a Clone or DeepCopy method returning a single value
// of the same type, that method is preferred. Otherwise pointers,
// slices, maps, arrays and the settable fields of structs are copied
// recursively; unexported struct fields are carried over as-is by a
// whole-struct copy.
type ReflectValueCloner struct{}

var _ ValueCloner = ReflectValueCloner{}

// CloneValue returns a deep copy of the input value.
func (ReflectValueCloner) CloneValue(v any) any {
	if v == nil {
		return nil
	}
	return cloneValue(reflect.ValueOf(v)).Interface()
}

// clonerMethod returns the value's own Clone or DeepCopy method when it
// has the conventional zero-in, one-out shape.
func clonerMethod(rv reflect.Value) (reflect.Value, bool) {
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return reflect.Value{}, false
	}
	for _, name := range []string{"Clone", "DeepCopy"} {
		m := rv.MethodByName(name)
		if m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
			return m, true
		}
	}
	return reflect.Value{}, false
}

func cloneValue(v reflect.Value) reflect.Value {
	if m, ok := clonerMethod(v); ok {
		return m.Call(nil)[0]
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		c := reflect.New(v.Type().Elem())
		c.Elem().Set(cloneValue(v.Elem()))
		return c
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			c.Index(i).Set(cloneValue(v.Index(i)))
		}
		return c
	case reflect.Array:
		c := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			c.Index(i).Set(cloneValue(v.Index(i)))
		}
		return c
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		c := reflect.MakeMap(v.Type())
		for _, k := range v.MapKeys() {
			c.SetMapIndex(k, cloneValue(v.MapIndex(k)))
		}
		return c
	case reflect.Struct:
		c := reflect.New(v.Type()).Elem()
		c.Set(v)
		for i := 0; i < v.NumField(); i++ {
			f := c.Field(i)
			if !f.CanSet() {
				continue
			}
			switch f.Kind() {
			case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Interface:
				f.Set(cloneValue(v.Field(i)))
			}
		}
		return c
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		c := reflect.New(v.Type()).Elem()
		c.Set(cloneValue(v.Elem()))
		return c
	default:
		return v
	}
}
