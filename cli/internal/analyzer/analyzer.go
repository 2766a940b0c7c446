// Package analyzer inspects task and plugin declarations in Go source without
// compiling them, so tag mistakes surface before a build runs.
package analyzer

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"reflect"
	"sort"
	"strings"
)

// AnalyzeDir parses the non-test Go files of dir and collects task types and plugins.
func AnalyzeDir(dir string) (*PackageMetadata, error) {
	fset := token.NewFileSet()
	notTest := func(fi fs.FileInfo) bool { return !strings.HasSuffix(fi.Name(), "_test.go") }
	pkgs, err := parser.ParseDir(fset, dir, notTest, parser.ParseComments)
	if err != nil {
		return nil, &AnalysisError{Dir: dir, Message: "failed to parse package", Cause: err}
	}
	if len(pkgs) == 0 {
		return nil, &AnalysisError{Dir: dir, Message: "no Go package found"}
	}
	if len(pkgs) > 1 {
		return nil, &AnalysisError{Dir: dir, Message: "more than one package found"}
	}

	var pkg *ast.Package
	for _, p := range pkgs {
		pkg = p
	}
	return analyzePackage(fset, dir, pkg), nil
}

func analyzePackage(fset *token.FileSet, dir string, pkg *ast.Package) *PackageMetadata {
	metadata := &PackageMetadata{
		Dir:     dir,
		Name:    pkg.Name,
		fset:    fset,
		methods: make(map[string]map[string]bool),
	}

	// Deterministic order: files by name, declarations by position.
	names := make([]string, 0, len(pkg.Files))
	for name := range pkg.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	var configStruct *ast.StructType
	var pluginStructs []*ast.TypeSpec
	for _, name := range names {
		for _, decl := range pkg.Files[name].Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					typeSpec, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					structType, ok := typeSpec.Type.(*ast.StructType)
					if !ok {
						continue
					}
					if typeSpec.Name.Name == "Config" {
						configStruct = structType
					}
					if isPluginStruct(typeSpec.Name.Name) {
						pluginStructs = append(pluginStructs, typeSpec)
					}
					if task := analyzeStruct(fset, typeSpec, structType); task != nil {
						metadata.TaskTypes = append(metadata.TaskTypes, task)
					}
				}
			case *ast.FuncDecl:
				recordMethod(d, metadata.methods)
			}
		}
	}

	for _, typeSpec := range pluginStructs {
		plugin := &PluginMetadata{TypeName: typeSpec.Name.Name}
		checkConfigField(fset, typeSpec.Type.(*ast.StructType), plugin, configStruct)
		metadata.Plugins = append(metadata.Plugins, plugin)
	}

	resolveSupertypes(metadata)
	return metadata
}

// analyzeStruct returns metadata for structs that embed DefaultTask or carry task-related fields.
func analyzeStruct(fset *token.FileSet, typeSpec *ast.TypeSpec, structType *ast.StructType) *TaskTypeMetadata {
	task := &TaskTypeMetadata{
		TypeName: typeSpec.Name.Name,
		Pos:      fset.Position(typeSpec.Pos()),
	}
	relevant := false

	for _, field := range structType.Fields.List {
		tag := structTag(field.Tag)

		if len(field.Names) == 0 {
			switch embeddedName(field.Type) {
			case "DefaultTask":
				task.EmbedsDefaultTask = true
				relevant = true
			case "Cacheable":
				task.Cacheable = true
			case "Actions":
			case "":
			default:
				if _, local := unpointer(field.Type).(*ast.Ident); local {
					task.Supertypes = append(task.Supertypes, embeddedName(field.Type))
				}
			}
			continue
		}

		for _, name := range field.Names {
			if name.Name == "_" && embeddedName(field.Type) == "Actions" {
				task.Actions = splitList(tag.Get("actions"))
				task.ActionsPos = fset.Position(field.Pos())
				relevant = true
				continue
			}
			if value, ok := tag.Lookup("task"); ok {
				task.Properties = append(task.Properties, PropertyMetadata{
					FieldName:   name.Name,
					Type:        typeToString(field.Type),
					Tag:         value,
					ValidateTag: tag.Get("validate"),
					Exported:    ast.IsExported(name.Name),
					Pos:         fset.Position(name.Pos()),
				})
				relevant = true
			}
			if value, ok := tag.Lookup("inject"); ok {
				task.Dependencies = append(task.Dependencies, Dependency{
					FieldName:  name.Name,
					PluginType: typeToString(field.Type),
					PluginName: value,
					IsExported: ast.IsExported(name.Name),
					Pos:        fset.Position(name.Pos()),
				})
				relevant = true
			}
		}
	}

	if !relevant && len(task.Supertypes) == 0 {
		return nil
	}
	return task
}

// resolveSupertypes marks types that reach DefaultTask through local supertypes and
// drops embedding-only structs that turned out unrelated to tasks.
func resolveSupertypes(metadata *PackageMetadata) {
	byName := make(map[string]*TaskTypeMetadata, len(metadata.TaskTypes))
	for _, task := range metadata.TaskTypes {
		byName[task.TypeName] = task
	}

	for changed := true; changed; {
		changed = false
		for _, task := range metadata.TaskTypes {
			if task.EmbedsDefaultTask {
				continue
			}
			for _, super := range task.Supertypes {
				if s, ok := byName[super]; ok && s.EmbedsDefaultTask {
					task.EmbedsDefaultTask = true
					changed = true
					break
				}
			}
		}
	}

	kept := metadata.TaskTypes[:0]
	for _, task := range metadata.TaskTypes {
		if task.EmbedsDefaultTask || len(task.Properties) > 0 || len(task.Actions) > 0 || len(task.Dependencies) > 0 {
			kept = append(kept, task)
		}
	}
	metadata.TaskTypes = kept
}

// hasMethod reports whether typeName or one of its local supertypes declares method.
func (m *PackageMetadata) hasMethod(typeName, method string) bool {
	seen := make(map[string]bool)
	var search func(name string) bool
	search = func(name string) bool {
		if seen[name] {
			return false
		}
		seen[name] = true
		if _, ok := m.methods[name][method]; ok {
			return true
		}
		if task := m.TaskType(name); task != nil {
			for _, super := range task.Supertypes {
				if search(super) {
					return true
				}
			}
		}
		return false
	}
	return search(typeName)
}

// TaskType returns the metadata of the named type, or nil.
func (m *PackageMetadata) TaskType(name string) *TaskTypeMetadata {
	for _, task := range m.TaskTypes {
		if task.TypeName == name {
			return task
		}
	}
	return nil
}

func recordMethod(funcDecl *ast.FuncDecl, methods map[string]map[string]bool) {
	if funcDecl.Recv == nil || len(funcDecl.Recv.List) == 0 {
		return
	}
	ident, ok := unpointer(funcDecl.Recv.List[0].Type).(*ast.Ident)
	if !ok {
		return
	}
	if methods[ident.Name] == nil {
		methods[ident.Name] = make(map[string]bool)
	}
	methods[ident.Name][funcDecl.Name.Name] = ast.IsExported(funcDecl.Name.Name)
}

// isPluginStruct checks if a type name looks like a plugin struct
// Convention: Exported struct ending with "Plugin"
func isPluginStruct(typeName string) bool {
	return ast.IsExported(typeName) && strings.HasSuffix(typeName, "Plugin")
}

// checkConfigField checks if plugin has a Config field and analyzes it
func checkConfigField(fset *token.FileSet, structType *ast.StructType, plugin *PluginMetadata, configStruct *ast.StructType) {
	for _, field := range structType.Fields.List {
		if !isConfigField(field) {
			continue
		}
		plugin.HasConfig = true
		plugin.ConfigType = analyzeConfigType(fset, configStruct)
		if plugin.ConfigType == nil {
			plugin.ConfigType = &ConfigMetadata{TypeName: "Config", Fields: []ConfigField{}}
		}
	}
}

func structTag(lit *ast.BasicLit) reflect.StructTag {
	if lit == nil {
		return ""
	}
	return reflect.StructTag(strings.Trim(lit.Value, "`"))
}

func unpointer(expr ast.Expr) ast.Expr {
	if star, ok := expr.(*ast.StarExpr); ok {
		return star.X
	}
	return expr
}

// embeddedName returns the type name of an embedded field, without package or pointer.
func embeddedName(expr ast.Expr) string {
	switch t := unpointer(expr).(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	}
	return ""
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
