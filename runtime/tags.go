package runtime

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Property kinds accepted in the `task` struct tag.
const (
	KindInputFile         = "input-file"
	KindInputDirectory    = "input-directory"
	KindInputFiles        = "input-files"
	KindOutputFile        = "output-file"
	KindOutputFiles       = "output-files"
	KindOutputDirectory   = "output-directory"
	KindOutputDirectories = "output-directories"
	KindInputValue        = "input-value"
	KindNestedObject      = "nested-object"
)

const (
	propertyTagKey = "task"
	actionsTagKey  = "actions"
	injectTagKey   = "inject"
	validateTagKey = "validate"
	optionalFlag   = "optional"
)

// Actions declares the executable steps of the struct it appears in. Its `actions` tag lists
// method names in execution order:
//
//	_ runtime.Actions `actions:"Generate,Compile"`
type Actions struct{}

// Cacheable marks a task type whose outputs may be cached. Only the concrete task type is consulted.
type Cacheable struct{}

var (
	actionsType     = reflect.TypeOf(Actions{})
	cacheableType   = reflect.TypeOf(Cacheable{})
	defaultTaskType = reflect.TypeOf(DefaultTask{})
)

// PropertyTag is a parsed `task` struct tag.
type PropertyTag struct {
	Kind     string
	Optional bool
}

// ParsePropertyTag parses the value of a `task` struct tag. A tag must name exactly one
// known kind and may add the optional flag.
func ParsePropertyTag(tag string) (PropertyTag, error) {
	var parsed PropertyTag
	var kinds []string
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
			continue
		case part == optionalFlag:
			parsed.Optional = true
		case handlerFor(part) != nil:
			kinds = append(kinds, part)
		default:
			return PropertyTag{}, fmt.Errorf("unknown property kind %q", part)
		}
	}

	switch len(kinds) {
	case 0:
		return PropertyTag{}, fmt.Errorf("tag %q names no property kind", tag)
	case 1:
		parsed.Kind = kinds[0]
		return parsed, nil
	default:
		return PropertyTag{}, fmt.Errorf("conflicting property kinds %s", strings.Join(kinds, ", "))
	}
}

// parseActionsTag returns the method names listed in an `actions` tag.
func parseActionsTag(tag string) []string {
	var names []string
	for _, name := range strings.Split(tag, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// isSupertypeField reports whether an embedded field contributes declarations to the embedding type.
func isSupertypeField(f reflect.StructField) bool {
	if !f.Anonymous {
		return false
	}
	t := f.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	return t != defaultTaskType && t != actionsType && t != cacheableType
}

func supertypeOf(f reflect.StructField) reflect.Type {
	if f.Type.Kind() == reflect.Pointer {
		return f.Type.Elem()
	}
	return f.Type
}

// decapitalize derives a property name from a field name: "Out" becomes "out",
// while names starting with two upper-case letters such as "URL" are kept.
func decapitalize(name string) string {
	runes := []rune(name)
	if len(runes) > 1 && unicode.IsUpper(runes[0]) && unicode.IsUpper(runes[1]) {
		return name
	}
	return toLowerFirst(name)
}

func qualifiedName(parent *PropertyInfo, name string) string {
	if parent == nil {
		return name
	}
	return parent.Name + "." + name
}
