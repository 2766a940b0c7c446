package runtime

import (
	"reflect"
	"unicode"

	"github.com/spf13/afero"
)

type validationFunc func(fs afero.Fs, name string, value any, messages *ValidationMessages)

type configureFunc func(task Task, property *PropertyInfo, value func() any)

// PropertyInfo describes one declared task property. Descriptors are built once per task type
// and shared by all instances.
type PropertyInfo struct {
	// Name is the qualified property name, dot-joined with the names of enclosing nested objects.
	Name string
	// FieldName is the Go field backing the property.
	FieldName string
	Type      reflect.Type
	Kind      string
	Parent    *PropertyInfo
	// DeclaringType is the struct type the field is declared in.
	DeclaringType reflect.Type
	Optional      bool
	Required      bool

	ownerType   reflect.Type
	index       []int
	accessor    *reflect.Method
	validateTag string
	notNull     bool
	validation  validationFunc
	configure   configureFunc
}

// HasAccessor reports whether values are read through a Get/Is method instead of the field.
func (p *PropertyInfo) HasAccessor() bool {
	return p.accessor != nil
}

// read extracts the property value from owner, which is the task or the enclosing nested object.
func (p *PropertyInfo) read(owner reflect.Value) any {
	for owner.Kind() == reflect.Interface {
		if owner.IsNil() {
			return nil
		}
		owner = owner.Elem()
	}
	if !owner.IsValid() {
		return nil
	}
	if owner.Kind() != reflect.Pointer {
		ptr := reflect.New(owner.Type())
		ptr.Elem().Set(owner)
		owner = ptr
	}
	if owner.IsNil() {
		return nil
	}

	field, ok := fieldByIndex(owner.Elem(), p.index)
	if !ok {
		return nil
	}
	if p.accessor != nil {
		out := p.accessor.Func.Call([]reflect.Value{owner})
		return valueOf(out[0])
	}
	return valueOf(field)
}

// fieldByIndex follows index through embedded structs. It reports false when a nil embedded
// pointer is on the path.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, idx := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(idx)
	}
	return v, true
}

// valueOf converts a reflected value to the property value, mapping unset values to nil.
func valueOf(v reflect.Value) any {
	if isNilValue(v) {
		return nil
	}
	if v.Kind() == reflect.String && v.Len() == 0 {
		return nil
	}
	return v.Interface()
}

func isNilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// findAccessor looks up Get<Field>, or Is<Field> for bool fields, on the pointer to ownerType.
func findAccessor(ownerType reflect.Type, field reflect.StructField) *reflect.Method {
	suffix := accessorSuffix(field.Name)
	names := []string{"Get" + suffix}
	if field.Type.Kind() == reflect.Bool {
		names = append([]string{"Is" + suffix}, names...)
	}
	ptrType := reflect.PointerTo(ownerType)
	for _, name := range names {
		m, ok := ptrType.MethodByName(name)
		if !ok {
			continue
		}
		if m.Type.NumIn() == 1 && m.Type.NumOut() == 1 {
			return &m
		}
	}
	return nil
}

// accessorSuffix upper-cases the first letter of a field name: "archive" gives "Archive".
func accessorSuffix(fieldName string) string {
	runes := []rune(fieldName)
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
