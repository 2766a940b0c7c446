// Package hcl loads build definitions written in HCL:
//
//	name = "site"
//
//	properties = {
//	  release = true
//	}
//
//	task "assets" {
//	  type       = "files.copy"
//	  depends_on = ["generate"]
//	  only_if    = ["properties.release"]
//	  timeout    = "30s"
//	  args = {
//	    from = ["static/logo.svg"]
//	    into = "build/assets"
//	  }
//	}
package hcl

import (
	"fmt"
	"math/big"

	"github.com/BDNK1/taskforge/runtime"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

type hclBuildFile struct {
	Name       *string    `hcl:"name,optional"`
	Properties cty.Value  `hcl:"properties,optional"`
	Tasks      []*hclTask `hcl:"task,block"`
}

type hclTask struct {
	Name        string    `hcl:"name,label"`
	Type        string    `hcl:"type"`
	Description *string   `hcl:"description,optional"`
	DependsOn   []string  `hcl:"depends_on,optional"`
	OnlyIf      []string  `hcl:"only_if,optional"`
	Timeout     *string   `hcl:"timeout,optional"`
	Args        cty.Value `hcl:"args,optional"`
}

// BuildLoader loads build definitions from HCL files.
type BuildLoader struct{}

func NewBuildLoader() *BuildLoader {
	return &BuildLoader{}
}

func (l *BuildLoader) Extensions() []string {
	return []string{"*.hcl"}
}

func (l *BuildLoader) Load(filePath string) (*runtime.Build, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
	}
	return decode(hclFile.Body, filePath)
}

// Parse decodes an HCL build definition held in memory; filename is used in diagnostics.
func Parse(src []byte, filename string) (*runtime.Build, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(hclFile.Body, filename)
}

func decode(body hcl.Body, filename string) (*runtime.Build, error) {
	var parsed hclBuildFile
	if diags := gohcl.DecodeBody(body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	build := &runtime.Build{}
	if parsed.Name != nil {
		build.Name = *parsed.Name
	}
	properties, err := toMap(parsed.Properties)
	if err != nil {
		return nil, fmt.Errorf("invalid properties in %s: %w", filename, err)
	}
	build.Properties = properties

	for _, t := range parsed.Tasks {
		spec := runtime.TaskSpec{
			Name:      t.Name,
			Type:      t.Type,
			DependsOn: t.DependsOn,
			OnlyIf:    t.OnlyIf,
		}
		if t.Description != nil {
			spec.Description = *t.Description
		}
		if t.Timeout != nil {
			spec.Timeout = *t.Timeout
		}
		args, err := toMap(t.Args)
		if err != nil {
			return nil, fmt.Errorf("invalid args of task '%s' in %s: %w", t.Name, filename, err)
		}
		spec.Args = args
		build.Tasks = append(build.Tasks, spec)
	}
	return build, nil
}

func toMap(val cty.Value) (map[string]any, error) {
	converted, err := ctyValueToInterface(val)
	if err != nil {
		return nil, err
	}
	if converted == nil {
		return nil, nil
	}
	m, ok := converted.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", val.Type().FriendlyName())
	}
	return m, nil
}

// ctyValueToInterface converts a cty.Value to plain Go values.
// Whole numbers become int so that they decode into integer fields.
func ctyValueToInterface(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	if val.Type().IsPrimitiveType() {
		switch val.Type() {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			bf := val.AsBigFloat()
			if bf.IsInt() {
				if i, acc := bf.Int64(); acc == big.Exact {
					return int(i), nil
				}
			}
			f, _ := bf.Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", val.Type().FriendlyName())
		}
	}
	if val.Type().IsObjectType() || val.Type().IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			valInterface, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = valInterface
		}
		return out, nil
	}
	if val.Type().IsTupleType() || val.Type().IsListType() || val.Type().IsSetType() {
		out := []any{}
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			valInterface, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out = append(out, valInterface)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", val.Type().FriendlyName())
}
