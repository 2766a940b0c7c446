package analyzer

import (
	"fmt"
	"go/ast"
	"go/token"
	"reflect"
	"strings"
)

// analyzeConfigType analyzes a Config struct type and extracts field metadata
func analyzeConfigType(fset *token.FileSet, structType *ast.StructType) *ConfigMetadata {
	if structType == nil || structType.Fields == nil {
		return nil
	}

	metadata := &ConfigMetadata{
		TypeName: "Config",
		Fields:   []ConfigField{},
	}

	for _, field := range structType.Fields.List {
		// Embedded fields carry no config keys of their own
		if len(field.Names) == 0 {
			continue
		}

		tag := structTag(field.Tag)
		for _, fieldName := range field.Names {
			metadata.Fields = append(metadata.Fields, ConfigField{
				Name:        fieldName.Name,
				Type:        typeToString(field.Type),
				YAMLTag:     extractTag(string(tag), "yaml"),
				DefaultTag:  tag.Get("default"),
				ValidateTag: tag.Get("validate"),
				Pos:         fset.Position(fieldName.Pos()),
			})
		}
	}

	return metadata
}

// typeToString converts an ast.Expr type to a string representation
func typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name

	case *ast.StarExpr:
		return "*" + typeToString(t.X)

	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + typeToString(t.Elt)
		}
		return "[...]" + typeToString(t.Elt)

	case *ast.MapType:
		return "map[" + typeToString(t.Key) + "]" + typeToString(t.Value)

	case *ast.SelectorExpr:
		// Qualified type: time.Duration, plugin.Paths
		return typeToString(t.X) + "." + t.Sel.Name

	case *ast.StructType:
		return "struct{...}"

	case *ast.InterfaceType:
		if t.Methods == nil || len(t.Methods.List) == 0 {
			return "any"
		}
		return "interface{...}"

	default:
		return fmt.Sprintf("%T", expr)
	}
}

// extractTag extracts the name part of a struct tag value
// Example: extractTag(`yaml:"addr,omitempty" default:"localhost"`, "yaml") returns "addr"
func extractTag(tagString, tagName string) string {
	value := reflect.StructTag(tagString).Get(tagName)
	name, _, _ := strings.Cut(value, ",")
	return name
}

// isConfigField checks if a struct field is the plugin's Config value field
func isConfigField(field *ast.Field) bool {
	if len(field.Names) == 0 {
		return false
	}

	fieldName := field.Names[0].Name
	if fieldName != "config" && fieldName != "Config" {
		return false
	}
	ident, ok := field.Type.(*ast.Ident)
	return ok && ident.Name == "Config"
}
