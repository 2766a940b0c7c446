package runtime

import "context"

// Validator checks the required properties of a task type. One Validator is shared by every
// instance of the type; it is registered as a task validator and prepended as a no-op action.
type Validator struct {
	properties []*PropertyInfo
	names      map[string]int
}

func newValidator() *Validator {
	return &Validator{names: make(map[string]int)}
}

// add registers a property. A later property with the same qualified name replaces the earlier one in place.
func (v *Validator) add(p *PropertyInfo) {
	if idx, ok := v.names[p.Name]; ok {
		v.properties[idx] = p
		return
	}
	v.names[p.Name] = len(v.properties)
	v.properties = append(v.properties, p)
}

// Properties returns the validated properties in registration order.
func (v *Validator) Properties() []*PropertyInfo {
	return v.properties
}

// Execute does nothing. Validation runs before actions through Validate.
func (v *Validator) Execute(context.Context, Task) error {
	return nil
}

// Validate evaluates each property once, records a message for every missing required value,
// then runs the kind-specific checks on the values that are present.
func (v *Validator) Validate(task Task, messages *ValidationMessages) {
	end := BeginPropertyPass(task)
	defer end()

	type propertyValue struct {
		property *PropertyInfo
		value    any
	}
	values := make([]propertyValue, 0, len(v.properties))
	for _, p := range v.properties {
		if parentIsNull(task, p) {
			continue
		}
		values = append(values, propertyValue{property: p, value: resolve(task, p)})
	}

	for _, pv := range values {
		if pv.property.notNull && pv.value == nil {
			messages.Add(notNullMessage, pv.property.Name)
		}
	}

	fs := task.FileSystem()
	for _, pv := range values {
		if pv.value != nil && pv.property.validation != nil {
			pv.property.validation(fs, pv.property.Name, pv.value, messages)
		}
	}
}

// addInputsAndOutputs registers the validator on task and runs each property's configure step.
func (v *Validator) addInputsAndOutputs(task Task) {
	task.AddValidator(v)
	for _, p := range v.properties {
		if p.configure != nil {
			p.configure(task, p, p.future(task))
		}
	}
}
