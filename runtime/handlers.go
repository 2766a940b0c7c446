package runtime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
)

// PropertyHandler attaches the validation and configuration behaviour of one property kind.
type PropertyHandler interface {
	Kind() string
	Attach(property *PropertyInfo) error
}

const notNullMessage = "No value has been specified for property '%s'."

// propertyHandlers is the closed, ordered set of property kinds.
var propertyHandlers = []PropertyHandler{
	inputFileHandler{},
	inputDirectoryHandler{},
	inputFilesHandler{},
	outputFileHandler{kind: KindOutputFile},
	outputFileHandler{kind: KindOutputFiles},
	outputDirectoryHandler{kind: KindOutputDirectory},
	outputDirectoryHandler{kind: KindOutputDirectories},
	inputValueHandler{},
	nestedObjectHandler{},
}

func handlerFor(kind string) PropertyHandler {
	for _, h := range propertyHandlers {
		if h.Kind() == kind {
			return h
		}
	}
	return nil
}

// Kinds returns the property kinds in registry order.
func Kinds() []string {
	kinds := make([]string, len(propertyHandlers))
	for i, h := range propertyHandlers {
		kinds[i] = h.Kind()
	}
	return kinds
}

var fileCollectionType = reflect.TypeOf((*FileCollection)(nil)).Elem()

func requireSinglePath(p *PropertyInfo) error {
	t := p.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.String {
		return fmt.Errorf("%s property must be a string path, got %s", p.Kind, p.Type)
	}
	return nil
}

func requirePathCollection(p *PropertyInfo) error {
	if p.Type.Implements(fileCollectionType) {
		return nil
	}
	if (p.Type.Kind() == reflect.Slice || p.Type.Kind() == reflect.Array) && p.Type.Elem().Kind() == reflect.String {
		return nil
	}
	return fmt.Errorf("%s property must be a string slice or FileCollection, got %s", p.Kind, p.Type)
}

func registerInput(task Task, p *PropertyInfo, value func() any) {
	task.Inputs().File(p.Name, p.Kind, value)
}

type inputFileHandler struct{}

func (inputFileHandler) Kind() string { return KindInputFile }

func (inputFileHandler) Attach(p *PropertyInfo) error {
	if err := requireSinglePath(p); err != nil {
		return err
	}
	p.validation = func(fs afero.Fs, name string, value any, messages *ValidationMessages) {
		for _, path := range toPaths(value) {
			if !exists(fs, path) {
				messages.Add("File '%s' specified for property '%s' does not exist.", path, name)
			} else if !isFile(fs, path) {
				messages.Add("File '%s' specified for property '%s' is not a file.", path, name)
			}
		}
	}
	p.configure = registerInput
	return nil
}

type inputDirectoryHandler struct{}

func (inputDirectoryHandler) Kind() string { return KindInputDirectory }

func (inputDirectoryHandler) Attach(p *PropertyInfo) error {
	if err := requireSinglePath(p); err != nil {
		return err
	}
	p.validation = func(fs afero.Fs, name string, value any, messages *ValidationMessages) {
		for _, path := range toPaths(value) {
			if !exists(fs, path) {
				messages.Add("Directory '%s' specified for property '%s' does not exist.", path, name)
			} else if !isDir(fs, path) {
				messages.Add("Directory '%s' specified for property '%s' is not a directory.", path, name)
			}
		}
	}
	p.configure = registerInput
	return nil
}

type inputFilesHandler struct{}

func (inputFilesHandler) Kind() string { return KindInputFiles }

func (inputFilesHandler) Attach(p *PropertyInfo) error {
	if err := requirePathCollection(p); err != nil {
		return err
	}
	p.configure = registerInput
	return nil
}

type outputFileHandler struct {
	kind string
}

func (h outputFileHandler) Kind() string { return h.kind }

func (h outputFileHandler) Attach(p *PropertyInfo) error {
	check := requireSinglePath
	if h.kind == KindOutputFiles {
		check = requirePathCollection
	}
	if err := check(p); err != nil {
		return err
	}
	p.validation = func(fs afero.Fs, name string, value any, messages *ValidationMessages) {
		for _, path := range toPaths(value) {
			if exists(fs, path) && isDir(fs, path) {
				messages.Add("Cannot write to file '%s' specified for property '%s' as it is a directory.", path, name)
				continue
			}
			if ancestor, ok := firstNonDirectoryAncestor(fs, path); ok {
				messages.Add("Cannot write to file '%s' specified for property '%s', as ancestor '%s' is not a directory.", path, name, ancestor)
			}
		}
	}
	p.configure = func(task Task, p *PropertyInfo, value func() any) {
		task.Outputs().File(p.Name, p.Kind, value)
		task.PrependAction(ActionFunc(func(ctx context.Context, task Task) error {
			for _, path := range toPaths(value()) {
				if err := mkdirs(task.FileSystem(), filepath.Dir(path)); err != nil {
					return fmt.Errorf("failed to create parent directory for property '%s': %w", p.Name, err)
				}
			}
			return nil
		}))
	}
	return nil
}

type outputDirectoryHandler struct {
	kind string
}

func (h outputDirectoryHandler) Kind() string { return h.kind }

func (h outputDirectoryHandler) Attach(p *PropertyInfo) error {
	check := requireSinglePath
	if h.kind == KindOutputDirectories {
		check = requirePathCollection
	}
	if err := check(p); err != nil {
		return err
	}
	p.validation = func(fs afero.Fs, name string, value any, messages *ValidationMessages) {
		for _, path := range toPaths(value) {
			if exists(fs, path) && !isDir(fs, path) {
				messages.Add("Directory '%s' specified for property '%s' is not a directory.", path, name)
				continue
			}
			if ancestor, ok := firstNonDirectoryAncestor(fs, path); ok {
				messages.Add("Cannot write to directory '%s' specified for property '%s', as ancestor '%s' is not a directory.", path, name, ancestor)
			}
		}
	}
	p.configure = func(task Task, p *PropertyInfo, value func() any) {
		task.Outputs().File(p.Name, p.Kind, value)
		task.PrependAction(ActionFunc(func(ctx context.Context, task Task) error {
			for _, path := range toPaths(value()) {
				if err := mkdirs(task.FileSystem(), path); err != nil {
					return fmt.Errorf("failed to create directory for property '%s': %w", p.Name, err)
				}
			}
			return nil
		}))
	}
	return nil
}

type inputValueHandler struct{}

func (inputValueHandler) Kind() string { return KindInputValue }

func (inputValueHandler) Attach(p *PropertyInfo) error {
	if p.validateTag != "" {
		rules := p.validateTag
		p.validation = func(_ afero.Fs, name string, value any, messages *ValidationMessages) {
			if err := validate.Var(value, rules); err != nil {
				messages.Add("Value specified for property '%s' is invalid: %s.", name, describeRuleFailure(err))
			}
		}
	}
	p.configure = func(task Task, p *PropertyInfo, value func() any) {
		task.Inputs().Property(p.Name, value)
	}
	return nil
}

func describeRuleFailure(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	rules := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		rule := fieldErr.Tag()
		if fieldErr.Param() != "" {
			rule += "=" + fieldErr.Param()
		}
		rules = append(rules, fmt.Sprintf("failed rule '%s'", rule))
	}
	return strings.Join(rules, ", ")
}

type nestedObjectHandler struct{}

func (nestedObjectHandler) Kind() string { return KindNestedObject }

// Attach only checks the shape; the inspector recurses into the nested type.
func (nestedObjectHandler) Attach(p *PropertyInfo) error {
	t := p.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("%s property must be a struct or pointer to struct, got %s", p.Kind, p.Type)
	}
	return nil
}
