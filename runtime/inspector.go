package runtime

import (
	"reflect"
)

// inspectProperties discovers the tagged properties of taskType. Embedded types are walked
// before the type's own fields, so descriptors of an embedding type follow those of the types it embeds.
func inspectProperties(taskType reflect.Type) ([]*PropertyInfo, error) {
	ins := &inspector{taskType: taskType, nesting: make(map[reflect.Type]bool)}
	if err := ins.walk(taskType, taskType, nil, nil); err != nil {
		return nil, err
	}
	return ins.properties, nil
}

type inspector struct {
	taskType   reflect.Type
	properties []*PropertyInfo
	nesting    map[reflect.Type]bool
}

// walk visits level, a struct type reachable from ownerType through embedded fields at index prefix.
func (ins *inspector) walk(ownerType, level reflect.Type, prefix []int, parent *PropertyInfo) error {
	for i := 0; i < level.NumField(); i++ {
		f := level.Field(i)
		if _, tagged := f.Tag.Lookup(propertyTagKey); isSupertypeField(f) && !tagged {
			if err := ins.walk(ownerType, supertypeOf(f), appendIndex(prefix, i), parent); err != nil {
				return err
			}
		}
	}

	for i := 0; i < level.NumField(); i++ {
		f := level.Field(i)
		tag, ok := f.Tag.Lookup(propertyTagKey)
		if !ok {
			continue
		}
		if err := ins.addProperty(ownerType, level, f, appendIndex(prefix, i), tag, parent); err != nil {
			return err
		}
	}
	return nil
}

func (ins *inspector) addProperty(ownerType, level reflect.Type, f reflect.StructField, index []int, tag string, parent *PropertyInfo) error {
	parsed, err := ParsePropertyTag(tag)
	if err != nil {
		return newDefinitionError(ins.taskType, f.Name, "invalid task tag on field %s.%s: %v", level.Name(), f.Name, err)
	}

	p := &PropertyInfo{
		Name:          qualifiedName(parent, decapitalize(f.Name)),
		FieldName:     f.Name,
		Type:          f.Type,
		Kind:          parsed.Kind,
		Parent:        parent,
		DeclaringType: level,
		Optional:      parsed.Optional,
		Required:      true,
		ownerType:     ownerType,
		index:         index,
		accessor:      findAccessor(ownerType, f),
		validateTag:   f.Tag.Get(validateTagKey),
		notNull:       !parsed.Optional,
	}

	if p.accessor == nil && !f.IsExported() {
		return newDefinitionError(ins.taskType, f.Name, "field %s.%s is unexported and has no Get%s accessor", level.Name(), f.Name, accessorSuffix(f.Name))
	}

	if err := handlerFor(parsed.Kind).Attach(p); err != nil {
		return newDefinitionError(ins.taskType, f.Name, "field %s.%s: %v", level.Name(), f.Name, err)
	}
	ins.properties = append(ins.properties, p)

	if parsed.Kind == KindNestedObject {
		return ins.nested(p)
	}
	return nil
}

func (ins *inspector) nested(p *PropertyInfo) error {
	nestedType := p.Type
	if nestedType.Kind() == reflect.Pointer {
		nestedType = nestedType.Elem()
	}
	if ins.nesting[nestedType] {
		return newDefinitionError(ins.taskType, p.FieldName, "nested property '%s' refers back to enclosing type %s", p.Name, nestedType)
	}
	ins.nesting[nestedType] = true
	defer delete(ins.nesting, nestedType)

	return ins.walk(nestedType, nestedType, nil, p)
}

func appendIndex(prefix []int, i int) []int {
	index := make([]int, len(prefix)+1)
	copy(index, prefix)
	index[len(prefix)] = i
	return index
}
