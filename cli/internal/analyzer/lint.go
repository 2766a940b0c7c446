package analyzer

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"
	"strings"
	"unicode"

	"github.com/BDNK1/taskforge/runtime"
)

var builtinScalars = map[string]bool{
	"bool": true, "int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float32": true, "float64": true, "byte": true, "rune": true, "any": true,
}

// Lint reports the declaration mistakes that would make task creation fail at run time.
// It only flags what the AST proves; types it cannot resolve are given the benefit of the doubt.
func Lint(pkg *PackageMetadata) []Finding {
	var findings []Finding
	report := func(pos token.Position, typeName, member, format string, args ...any) {
		findings = append(findings, Finding{Pos: pos, TypeName: typeName, Member: member, Message: fmt.Sprintf(format, args...)})
	}

	for _, task := range pkg.TaskTypes {
		for _, p := range task.Properties {
			tag, err := runtime.ParsePropertyTag(p.Tag)
			if err != nil {
				report(p.Pos, task.TypeName, p.FieldName, "invalid task tag: %v", err)
				continue
			}
			if !p.Exported && !pkg.hasAccessor(task.TypeName, p) {
				report(p.Pos, task.TypeName, p.FieldName, "unexported field needs a Get%s accessor", upperFirst(p.FieldName))
			}
			if msg := shapeProblem(tag.Kind, p.Type); msg != "" {
				report(p.Pos, task.TypeName, p.FieldName, "%s", msg)
			}
			if p.ValidateTag != "" && tag.Kind != runtime.KindInputValue {
				report(p.Pos, task.TypeName, p.FieldName, "validate tag only applies to %s properties", runtime.KindInputValue)
			}
		}

		for _, action := range task.Actions {
			if !pkg.hasMethod(task.TypeName, action) {
				report(task.ActionsPos, task.TypeName, action, "action has no matching method")
			} else if !ast.IsExported(action) {
				report(task.ActionsPos, task.TypeName, action, "action method must be exported")
			}
		}
		if len(task.Actions) > 0 && !task.EmbedsDefaultTask {
			report(task.Pos, task.TypeName, "", "declares actions but does not embed DefaultTask")
		}

		for _, dep := range task.Dependencies {
			if !dep.IsExported {
				report(dep.Pos, task.TypeName, dep.FieldName, "injected field must be exported")
			}
			if dep.PluginName == "" {
				report(dep.Pos, task.TypeName, dep.FieldName, "inject tag names no plugin")
			}
			if !strings.HasPrefix(dep.PluginType, "*") {
				report(dep.Pos, task.TypeName, dep.FieldName, "injected field must be a pointer, got %s", dep.PluginType)
			}
		}
	}

	for _, plugin := range pkg.Plugins {
		if plugin.ConfigType == nil {
			continue
		}
		for _, field := range plugin.ConfigType.Fields {
			if ast.IsExported(field.Name) && field.YAMLTag == "" {
				report(field.Pos, plugin.TypeName, "Config."+field.Name, "config field has no yaml key")
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Pos.Filename != findings[j].Pos.Filename {
			return findings[i].Pos.Filename < findings[j].Pos.Filename
		}
		return findings[i].Pos.Line < findings[j].Pos.Line
	})
	return findings
}

func (m *PackageMetadata) hasAccessor(typeName string, p PropertyMetadata) bool {
	suffix := upperFirst(p.FieldName)
	if m.hasMethod(typeName, "Get"+suffix) {
		return true
	}
	return p.Type == "bool" && m.hasMethod(typeName, "Is"+suffix)
}

// shapeProblem mirrors the runtime's field shape rules for the types visible in source.
func shapeProblem(kind, typ string) string {
	base := strings.TrimPrefix(typ, "*")
	switch kind {
	case runtime.KindInputFile, runtime.KindInputDirectory, runtime.KindOutputFile, runtime.KindOutputDirectory:
		if builtinScalars[base] || strings.HasPrefix(base, "[") || strings.HasPrefix(base, "map[") {
			return fmt.Sprintf("%s property must be a string path, got %s", kind, typ)
		}
	case runtime.KindInputFiles, runtime.KindOutputFiles, runtime.KindOutputDirectories:
		if typ == "string" || builtinScalars[typ] || strings.HasPrefix(typ, "map[") {
			return fmt.Sprintf("%s property must be a string slice or FileCollection, got %s", kind, typ)
		}
		if strings.HasPrefix(typ, "[") && !strings.HasSuffix(typ, "]string") {
			return fmt.Sprintf("%s property must be a string slice or FileCollection, got %s", kind, typ)
		}
	case runtime.KindNestedObject:
		if builtinScalars[base] || base == "string" || strings.HasPrefix(base, "[") || strings.HasPrefix(base, "map[") {
			return fmt.Sprintf("%s property must be a struct or pointer to struct, got %s", kind, typ)
		}
	}
	return ""
}

func upperFirst(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
