package runtime

import "reflect"

// propertyPass memoizes property values for one execution of a task instance.
type propertyPass struct {
	values map[*PropertyInfo]any
}

// BeginPropertyPass starts a fresh property value cache on task. Every property is evaluated at
// most once until the returned function ends the pass. Passes do not nest; beginning a pass while
// one is active keeps the active one and returns a no-op.
func BeginPropertyPass(task Task) (end func()) {
	b := task.base()
	if b.pass != nil {
		return func() {}
	}
	b.pass = &propertyPass{values: make(map[*PropertyInfo]any)}
	return func() {
		b.pass = nil
	}
}

// future returns a thunk resolving the property on task through the active pass.
func (p *PropertyInfo) future(task Task) func() any {
	return func() any {
		return resolve(task, p)
	}
}

// resolve evaluates p on task. Outside a pass the value is read fresh on every call.
func resolve(task Task, p *PropertyInfo) any {
	pass := task.base().pass
	if pass != nil {
		if v, ok := pass.values[p]; ok {
			return v
		}
	}

	var v any
	if p.Parent == nil {
		v = p.read(reflect.ValueOf(task))
	} else if parent := resolve(task, p.Parent); parent != nil {
		v = p.read(reflect.ValueOf(parent))
	}

	if pass != nil {
		pass.values[p] = v
	}
	return v
}

// parentIsNull reports whether an enclosing nested object of p resolved to nil.
func parentIsNull(task Task, p *PropertyInfo) bool {
	return p.Parent != nil && resolve(task, p.Parent) == nil
}
