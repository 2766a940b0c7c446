package runtime

import (
	"github.com/Jeffail/gabs/v2"
)

// DescribeTaskType renders the metadata of a registered task type as a JSON document.
func DescribeTaskType(name string, info *TaskClassInfo) *gabs.Container {
	doc := gabs.New()
	doc.Set(name, "name")
	doc.Set(info.Incremental, "incremental")
	doc.Set(info.Cacheable, "cacheable")

	doc.Array("actions")
	for _, action := range info.Actions {
		doc.ArrayAppend(map[string]any{
			"name":          action.Name,
			"declaringType": action.DeclaringType.String(),
			"incremental":   action.Incremental,
		}, "actions")
	}

	doc.Array("properties")
	if info.Validator != nil {
		for _, p := range info.Validator.Properties() {
			doc.ArrayAppend(describeProperty(p), "properties")
		}
	}
	return doc
}

func describeProperty(p *PropertyInfo) map[string]any {
	property := map[string]any{
		"name":          p.Name,
		"kind":          p.Kind,
		"type":          p.Type.String(),
		"declaringType": p.DeclaringType.String(),
		"optional":      p.Optional,
		"accessor":      p.HasAccessor(),
	}
	if p.Parent != nil {
		property["parent"] = p.Parent.Name
	}
	if p.validateTag != "" {
		property["validate"] = p.validateTag
	}
	return property
}

// DescribeValidation renders validation results keyed by task name.
func DescribeValidation(results map[string]ValidationMessages) *gabs.Container {
	doc := gabs.New()
	valid := true
	for task, messages := range results {
		doc.Array("tasks", task)
		for _, msg := range messages {
			doc.ArrayAppend(msg, "tasks", task)
		}
		if len(messages) > 0 {
			valid = false
		}
	}
	if len(results) == 0 {
		doc.Object("tasks")
	}
	doc.Set(valid, "valid")
	return doc
}
