package cfn

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const FormatVersion = "2010-09-09"

var (
	ErrDuplicateLogicalId  = errors.New("duplicate logical id")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrReferenceCycle      = errors.New("reference cycle")

	logicalIdPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,255}$`)
	subRefPattern    = regexp.MustCompile(`\$\{([^!}][^}]*)\}`)
)

type (
	Template struct {
		Description string
		Resources   map[string]*Resource
		Outputs     map[string]*Output
	}

	Resource struct {
		Type       string
		Properties any
		DependsOn  []string
	}

	Output struct {
		Description string
		Value       String
		ExportName  String
	}
)

func NewTemplate(description string) *Template {
	return &Template{
		Description: description,
		Resources:   make(map[string]*Resource),
		Outputs:     make(map[string]*Output),
	}
}

func (t *Template) AddResource(logicalId string, r *Resource) error {
	if !logicalIdPattern.MatchString(logicalId) {
		return fmt.Errorf("invalid logical id '%s' (must match %s)", logicalId, logicalIdPattern)
	}
	if _, ok := t.Resources[logicalId]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLogicalId, logicalId)
	}
	if _, ok := t.Outputs[logicalId]; ok {
		return fmt.Errorf("%w: %s (already used by an output)", ErrDuplicateLogicalId, logicalId)
	}
	t.Resources[logicalId] = r
	zap.S().Debugf("Added resource %s (%s)", logicalId, r.Type)
	return nil
}

// RemoveResource deletes the resource if present and reports whether it was.
func (t *Template) RemoveResource(logicalId string) bool {
	if _, ok := t.Resources[logicalId]; !ok {
		return false
	}
	delete(t.Resources, logicalId)
	zap.S().Debugf("Removed resource %s", logicalId)
	return true
}

func (t *Template) AddOutput(name string, o *Output) error {
	if !logicalIdPattern.MatchString(name) {
		return fmt.Errorf("invalid output name '%s' (must match %s)", name, logicalIdPattern)
	}
	if _, ok := t.Outputs[name]; ok {
		return fmt.Errorf("%w: output %s", ErrDuplicateLogicalId, name)
	}
	if _, ok := t.Resources[name]; ok {
		return fmt.Errorf("%w: output %s (already used by a resource)", ErrDuplicateLogicalId, name)
	}
	t.Outputs[name] = o
	return nil
}

// ResourcesOfType returns the logical IDs of all resources with the given type, sorted.
func (t *Template) ResourcesOfType(typ string) []string {
	var ids []string
	for id, r := range t.Resources {
		if r.Type == typ {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (t *Template) MarshalJSON() ([]byte, error) {
	type resource struct {
		Type       string   `json:"Type"`
		Properties any      `json:"Properties,omitempty"`
		DependsOn  []string `json:"DependsOn,omitempty"`
	}
	type output struct {
		Description string `json:"Description,omitempty"`
		Value       String `json:"Value"`
		Export      any    `json:"Export,omitempty"`
	}
	doc := struct {
		AWSTemplateFormatVersion string              `json:"AWSTemplateFormatVersion"`
		Description              string              `json:"Description,omitempty"`
		Resources                map[string]resource `json:"Resources"`
		Outputs                  map[string]output   `json:"Outputs,omitempty"`
	}{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              t.Description,
		Resources:                make(map[string]resource, len(t.Resources)),
	}
	for id, r := range t.Resources {
		doc.Resources[id] = resource{Type: r.Type, Properties: r.Properties, DependsOn: r.DependsOn}
	}
	if len(t.Outputs) > 0 {
		doc.Outputs = make(map[string]output, len(t.Outputs))
		for name, o := range t.Outputs {
			out := output{Description: o.Description, Value: o.Value}
			if o.ExportName != nil {
				out.Export = map[string]String{"Name": o.ExportName}
			}
			doc.Outputs[name] = out
		}
	}
	return json.Marshal(doc)
}

// RenderJSON returns the indented JSON form of the template.
func (t *Template) RenderJSON() ([]byte, error) {
	return ToJSON(t)
}

// ToJSON renders v as indented JSON with a trailing newline.
func ToJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err := json.Indent(buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RenderYAML returns the YAML form of the template. Intrinsics are emitted in their
// long (`Fn::GetAtt:`) form.
func (t *Template) RenderYAML() ([]byte, error) {
	return ToYAML(t)
}

// ToYAML renders any JSON-marshallable value as YAML.
func ToYAML(v any) ([]byte, error) {
	generic, err := toGeneric(v)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// References returns the logical IDs referenced from the resource's properties and
// DependsOn, excluding pseudo parameters.
func (r *Resource) References() ([]string, error) {
	generic, err := toGeneric(r.Properties)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]struct{})
	collectReferences(generic, refs)
	for _, d := range r.DependsOn {
		refs[d] = struct{}{}
	}
	ids := make([]string, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func collectReferences(v any, refs map[string]struct{}) {
	switch v := v.(type) {
	case map[string]any:
		if len(v) == 1 {
			if ref, ok := v["Ref"].(string); ok {
				if !IsPseudoParameter(ref) {
					refs[ref] = struct{}{}
				}
				return
			}
			if att, ok := v["Fn::GetAtt"].([]any); ok && len(att) > 0 {
				if id, ok := att[0].(string); ok {
					refs[id] = struct{}{}
				}
				return
			}
			if sub, ok := v["Fn::Sub"].(string); ok {
				for _, m := range subRefPattern.FindAllStringSubmatch(sub, -1) {
					id, _, _ := strings.Cut(m[1], ".")
					if !IsPseudoParameter(id) {
						refs[id] = struct{}{}
					}
				}
				return
			}
		}
		for _, child := range v {
			collectReferences(child, refs)
		}
	case []any:
		for _, child := range v {
			collectReferences(child, refs)
		}
	}
}

func (t *Template) dependencyGraph() (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	ids := make([]string, 0, len(t.Resources))
	for id := range t.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := g.AddVertex(id); err != nil {
			return nil, err
		}
	}

	var errs error
	for _, id := range ids {
		refs, err := t.Resources[id].References()
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("could not read references of %s: %w", id, err))
			continue
		}
		for _, ref := range refs {
			if _, ok := t.Resources[ref]; !ok {
				errs = errors.Join(errs, fmt.Errorf("%w: %s references %s", ErrUnresolvedReference, id, ref))
				continue
			}
			// edges point from a dependency to its dependent
			err := g.AddEdge(ref, id)
			switch {
			case errors.Is(err, graph.ErrEdgeAlreadyExists):
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				errs = errors.Join(errs, fmt.Errorf("%w: %s -> %s", ErrReferenceCycle, ref, id))
			case err != nil:
				errs = errors.Join(errs, err)
			}
		}
	}
	return g, errs
}

// Validate checks that every reference resolves to a resource in the template and that
// resource references form no cycle. Output values are checked as well.
func (t *Template) Validate() error {
	_, errs := t.dependencyGraph()
	names := make([]string, 0, len(t.Outputs))
	for name := range t.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o := t.Outputs[name]
		if o.Value == nil {
			errs = errors.Join(errs, fmt.Errorf("output %s has no value", name))
			continue
		}
		refs, err := (&Resource{Properties: []String{o.Value, o.ExportName}}).References()
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		for _, ref := range refs {
			if _, ok := t.Resources[ref]; !ok {
				errs = errors.Join(errs, fmt.Errorf("%w: output %s references %s", ErrUnresolvedReference, name, ref))
			}
		}
	}
	return errs
}

// Order returns the logical IDs in deployment order: every resource comes after the
// resources it references. Ties are broken alphabetically.
func (t *Template) Order() ([]string, error) {
	g, err := t.dependencyGraph()
	if err != nil {
		return nil, err
	}
	return graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
}
