package cdkgraph

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	metadataType = "AWS::CDK::Metadata"
	pathMetadata = "aws:cdk:path"
)

type (
	// Template is the subset of a CloudFormation template needed to rebuild its resource graph.
	Template struct {
		Resources map[string]TemplateResource `json:"Resources"`
		Outputs   map[string]TemplateOutput   `json:"Outputs"`
	}

	TemplateResource struct {
		Type       string         `json:"Type"`
		Properties map[string]any `json:"Properties"`
		DependsOn  stringList     `json:"DependsOn"`
		Metadata   map[string]any `json:"Metadata"`
	}

	TemplateOutput struct {
		Value  any           `json:"Value"`
		Export *OutputExport `json:"Export"`
	}

	OutputExport struct {
		Name any `json:"Name"`
	}

	// stringList accepts both `"X"` and `["X", "Y"]`, which CloudFormation allows for DependsOn.
	stringList []string
)

func (l *stringList) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*l = []string{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = list
	return nil
}

// Path returns the construct path recorded by the CDK, or "" for hand written templates.
func (r TemplateResource) Path() string {
	p, _ := r.Metadata[pathMetadata].(string)
	return p
}

// ExportName returns the export's name when it is a literal string. Computed export names
// cannot be matched against Fn::ImportValue and are ignored.
func (o TemplateOutput) ExportName() (string, bool) {
	if o.Export == nil {
		return "", false
	}
	name, ok := o.Export.Name.(string)
	return name, ok && name != ""
}

type references struct {
	// logical are logical ids referenced through Ref, Fn::GetAtt or Fn::Sub.
	logical []string
	// imports are export names referenced through Fn::ImportValue.
	imports []string
}

// subPlaceholder matches `${Name}` and `${Name.Attr}`; `${!Literal}` is an escape and is skipped.
var subPlaceholder = regexp.MustCompile(`\$\{([^!}][^}]*)\}`)

// collectReferences walks a property value and gathers every intrinsic reference in it.
// The results are sorted and free of duplicates.
func collectReferences(v any) references {
	logical := make(map[string]struct{})
	imports := make(map[string]struct{})

	var walk func(v any)
	walk = func(v any) {
		switch v := v.(type) {
		case map[string]any:
			if len(v) == 1 {
				for fn, arg := range v {
					if handled := intrinsic(fn, arg, logical, imports, walk); handled {
						return
					}
				}
			}
			for _, child := range v {
				walk(child)
			}
		case []any:
			for _, child := range v {
				walk(child)
			}
		}
	}
	walk(v)

	return references{logical: sortedKeys(logical), imports: sortedKeys(imports)}
}

func intrinsic(fn string, arg any, logical, imports map[string]struct{}, walk func(any)) bool {
	switch fn {
	case "Ref":
		if name, ok := arg.(string); ok {
			logical[name] = struct{}{}
		}
		return true

	case "Fn::GetAtt":
		switch arg := arg.(type) {
		case []any:
			if len(arg) > 0 {
				if name, ok := arg[0].(string); ok {
					logical[name] = struct{}{}
				}
			}
		case string:
			name, _, _ := strings.Cut(arg, ".")
			logical[name] = struct{}{}
		}
		return true

	case "Fn::Sub":
		var (
			text string
			vars map[string]any
		)
		switch arg := arg.(type) {
		case string:
			text = arg
		case []any:
			if len(arg) > 0 {
				text, _ = arg[0].(string)
			}
			if len(arg) > 1 {
				vars, _ = arg[1].(map[string]any)
				walk(arg[1])
			}
		}
		for _, m := range subPlaceholder.FindAllStringSubmatch(text, -1) {
			name, _, _ := strings.Cut(m[1], ".")
			// Variables defined in the Sub's own map shadow logical ids.
			if _, local := vars[name]; !local {
				logical[name] = struct{}{}
			}
		}
		return true

	case "Fn::ImportValue":
		if name, ok := arg.(string); ok {
			imports[name] = struct{}{}
			return true
		}
		// A computed import name can still contain references.
		walk(arg)
		return true
	}
	return false
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
