package genai

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/klothoplatform/genai-constructs/pkg/config"
	"github.com/klothoplatform/genai-constructs/pkg/provider/aws/iam"
	"github.com/klothoplatform/genai-constructs/pkg/provider/aws/kendra"
	"github.com/r3labs/diff"
	"gopkg.in/yaml.v3"
)

type ChangeAction string

const (
	ActionAdd     ChangeAction = "add"
	ActionRemove  ChangeAction = "remove"
	ActionModify  ChangeAction = "modify"
	ActionReplace ChangeAction = "replace"
)

// replacementProperties lists, per resource type, the properties whose update makes
// CloudFormation replace the resource.
var replacementProperties = map[string][]string{
	kendra.IndexType: {"Name", "Edition"},
	iam.RoleType:     {"RoleName", "Path"},
}

type (
	ResourceChange struct {
		LogicalId string
		Type      string
		Action    ChangeAction
		Changes   diff.Changelog
	}

	templateDoc struct {
		Resources map[string]templateResource `yaml:"Resources"`
		Outputs   map[string]any              `yaml:"Outputs"`
	}

	templateResource struct {
		Type       string         `yaml:"Type"`
		Properties map[string]any `yaml:"Properties"`
	}
)

func parseTemplate(content []byte) (templateDoc, error) {
	var doc templateDoc
	// JSON templates are valid YAML, so one decoder reads both.
	err := yaml.Unmarshal(content, &doc)
	return doc, err
}

// DiffTemplates compares two synthesized templates resource by resource. Changes are
// ordered by logical ID.
func DiffTemplates(before, after []byte) ([]ResourceChange, error) {
	oldDoc, err := parseTemplate(before)
	if err != nil {
		return nil, fmt.Errorf("could not parse old template: %w", err)
	}
	newDoc, err := parseTemplate(after)
	if err != nil {
		return nil, fmt.Errorf("could not parse new template: %w", err)
	}

	ids := make(map[string]struct{}, len(oldDoc.Resources)+len(newDoc.Resources))
	for id := range oldDoc.Resources {
		ids[id] = struct{}{}
	}
	for id := range newDoc.Resources {
		ids[id] = struct{}{}
	}

	var changes []ResourceChange
	for _, id := range config.SortedKeys(ids) {
		oldRes, inOld := oldDoc.Resources[id]
		newRes, inNew := newDoc.Resources[id]
		switch {
		case !inOld:
			changes = append(changes, ResourceChange{LogicalId: id, Type: newRes.Type, Action: ActionAdd})
		case !inNew:
			changes = append(changes, ResourceChange{LogicalId: id, Type: oldRes.Type, Action: ActionRemove})
		case oldRes.Type != newRes.Type:
			changes = append(changes, ResourceChange{
				LogicalId: id,
				Type:      newRes.Type,
				Action:    ActionReplace,
				Changes:   diff.Changelog{{Type: diff.UPDATE, Path: []string{"Type"}, From: oldRes.Type, To: newRes.Type}},
			})
		default:
			cl := diffProperties(oldRes.Properties, newRes.Properties)
			if len(cl) == 0 {
				continue
			}
			action := ActionModify
			if requiresReplacement(newRes.Type, cl) {
				action = ActionReplace
			}
			changes = append(changes, ResourceChange{LogicalId: id, Type: newRes.Type, Action: action, Changes: cl})
		}
	}
	return changes, nil
}

func diffProperties(before, after map[string]any) diff.Changelog {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	var cl diff.Changelog
	for _, k := range config.SortedKeys(keys) {
		from, inOld := before[k]
		to, inNew := after[k]
		switch {
		case !inOld:
			cl.Add(diff.CREATE, []string{k}, nil, to)
		case !inNew:
			cl.Add(diff.DELETE, []string{k}, from, nil)
		case reflect.DeepEqual(from, to):
		default:
			sub, err := diff.Diff(from, to)
			if err != nil || len(sub) == 0 {
				// Values whose shape changed (e.g. a literal replaced by an intrinsic) are
				// reported as a single update.
				cl.Add(diff.UPDATE, []string{k}, from, to)
				continue
			}
			sort.SliceStable(sub, func(i, j int) bool {
				return strings.Join(sub[i].Path, ".") < strings.Join(sub[j].Path, ".")
			})
			for _, c := range sub {
				cl.Add(c.Type, append([]string{k}, c.Path...), c.From, c.To)
			}
		}
	}
	return cl
}

func requiresReplacement(typ string, cl diff.Changelog) bool {
	for _, prop := range replacementProperties[typ] {
		for _, c := range cl {
			if len(c.Path) > 0 && c.Path[0] == prop {
				return true
			}
		}
	}
	return false
}

// PrintChanges writes a human readable summary of changes to w.
func PrintChanges(w io.Writer, changes []ResourceChange) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No changes")
		return
	}
	for _, rc := range changes {
		var c *color.Color
		var symbol string
		switch rc.Action {
		case ActionAdd:
			c, symbol = color.New(color.FgGreen), "+"
		case ActionRemove:
			c, symbol = color.New(color.FgRed), "-"
		case ActionReplace:
			c, symbol = color.New(color.FgRed, color.Bold), "!"
		default:
			c, symbol = color.New(color.FgYellow), "~"
		}
		line := fmt.Sprintf("%s %s (%s)", symbol, rc.LogicalId, rc.Type)
		if rc.Action == ActionReplace {
			line += " requires replacement"
		}
		c.Fprintln(w, line) // nolint:errcheck
		for _, change := range rc.Changes {
			fmt.Fprintf(w, "    %s %s: %v -> %v\n", change.Type, strings.Join(change.Path, "."), change.From, change.To)
		}
	}
}
