package construct

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/klothoplatform/genai-constructs/pkg/cfn"
	"go.uber.org/zap"
)

var stackNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,127}$`)

type (
	// Environment pins a stack to an account and region. Empty fields are left for
	// CloudFormation to resolve through pseudo parameters at deploy time.
	Environment struct {
		Account   string `json:"account,omitempty" yaml:"account,omitempty" toml:"account,omitempty"`
		Region    string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`
		Partition string `json:"partition,omitempty" yaml:"partition,omitempty" toml:"partition,omitempty"`
	}

	Stack struct {
		Name     string
		Env      Environment
		root     *Node
		template *cfn.Template
	}

	ArnFormat int

	ArnComponents struct {
		Service      string
		Resource     string
		ResourceName string
		ArnFormat    ArnFormat
		// Region overrides the stack region when set.
		Region string
		// Account overrides the stack account when set.
		Account string
		// Global leaves the region empty, as for IAM.
		Global bool
	}
)

const (
	// SlashResourceName renders `resource/resource-name`.
	SlashResourceName ArnFormat = iota
	// ColonResourceName renders `resource:resource-name`.
	ColonResourceName
	// NoResourceName renders `resource` and ignores ResourceName.
	NoResourceName
)

func NewStack(name string, env Environment, description string) (*Stack, error) {
	if !stackNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid stack name '%s' (must match %s)", name, stackNamePattern)
	}
	s := &Stack{
		Name:     name,
		Env:      env,
		template: cfn.NewTemplate(description),
	}
	s.root = &Node{id: name, stack: s}
	return s, nil
}

func (s *Stack) Node() *Node {
	return s.root
}

func (s *Stack) Template() *cfn.Template {
	return s.template
}

// Of returns the stack that owns the scope.
func Of(scope Scope) *Stack {
	return scope.Node().Stack()
}

// LogicalId derives the CloudFormation logical ID for the resource at node: the
// alphanumeric path components below the stack root followed by a hash of the full path.
func (s *Stack) LogicalId(node *Node) string {
	comps := node.Components()[1:]
	var human strings.Builder
	for _, c := range comps {
		if c == "Resource" || c == "Default" {
			continue
		}
		human.WriteString(sanitizeLogicalId(c))
	}
	hash := strings.ToUpper(pathHash(node.Components()))
	id := human.String()
	if limit := 255 - len(hash); len(id) > limit {
		id = id[:limit]
	}
	return id + hash
}

// AddResource registers a resource for node in the stack's template and returns its
// logical ID. props is kept by reference, so later changes to it are synthesized.
func (s *Stack) AddResource(node *Node, typ string, props any) (string, error) {
	if node.Stack() != s {
		return "", fmt.Errorf("node '%s' does not belong to stack '%s'", node.Path(), s.Name)
	}
	logicalId := s.LogicalId(node)
	if err := s.template.AddResource(logicalId, &cfn.Resource{Type: typ, Properties: props}); err != nil {
		return "", fmt.Errorf("could not add %s at '%s': %w", typ, node.Path(), err)
	}
	return logicalId, nil
}

// Remove detaches node from the tree and drops every resource registered at or below it,
// so the id can be used again.
func (s *Stack) Remove(node *Node) error {
	if node.Stack() != s {
		return fmt.Errorf("node '%s' does not belong to stack '%s'", node.Path(), s.Name)
	}
	if node.Scope() == nil {
		return fmt.Errorf("cannot remove the root of stack '%s'", s.Name)
	}
	var walk func(n *Node)
	walk = func(n *Node) {
		s.template.RemoveResource(s.LogicalId(n))
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(node)
	node.Scope().removeChild(node.Id())
	return nil
}

func (s *Stack) AddOutput(name string, o *cfn.Output) error {
	return s.template.AddOutput(name, o)
}

func (s *Stack) partition() string {
	if s.Env.Partition != "" {
		return s.Env.Partition
	}
	return PartitionForRegion(s.Env.Region)
}

// PartitionForRegion returns the partition a concrete region belongs to, or "" when the
// region is not known.
func PartitionForRegion(region string) string {
	switch {
	case region == "":
		return ""
	case strings.HasPrefix(region, "cn-"):
		return "aws-cn"
	case strings.HasPrefix(region, "us-gov-"):
		return "aws-us-gov"
	case strings.HasPrefix(region, "us-iso-"):
		return "aws-iso"
	case strings.HasPrefix(region, "us-isob-"):
		return "aws-iso-b"
	default:
		return "aws"
	}
}

// FormatArn builds an ARN in this stack's environment. When every component is known
// the ARN is a literal, otherwise unknown parts become pseudo parameter references.
func (s *Stack) FormatArn(c ArnComponents) cfn.String {
	resource := c.Resource
	switch c.ArnFormat {
	case SlashResourceName:
		resource += "/" + c.ResourceName
	case ColonResourceName:
		resource += ":" + c.ResourceName
	}

	partition := s.partition()
	region := c.Region
	if region == "" && !c.Global {
		region = s.Env.Region
	}
	account := c.Account
	if account == "" {
		account = s.Env.Account
	}

	if partition != "" && account != "" && (region != "" || c.Global) {
		return cfn.Literal(arn.ARN{
			Partition: partition,
			Service:   c.Service,
			Region:    region,
			AccountID: account,
			Resource:  resource,
		}.String())
	}

	orParam := func(v, param string) string {
		if v != "" {
			return escapeSub(v)
		}
		return "${" + param + "}"
	}
	regionPart := ""
	if !c.Global {
		regionPart = orParam(region, cfn.RegionParam)
	}
	return cfn.Sub(fmt.Sprintf("arn:%s:%s:%s:%s:%s",
		orParam(partition, cfn.PartitionParam),
		escapeSub(c.Service),
		regionPart,
		orParam(account, cfn.AccountIdParam),
		escapeSub(resource),
	))
}

// escapeSub makes a literal safe inside Fn::Sub, where "${" starts a reference.
func escapeSub(s string) string {
	return strings.ReplaceAll(s, "${", "${!")
}

// Synth validates the stack's template and returns it.
func (s *Stack) Synth() (*cfn.Template, error) {
	if err := s.template.Validate(); err != nil {
		return nil, fmt.Errorf("stack '%s' is invalid: %w", s.Name, err)
	}
	ids := make([]string, 0, len(s.template.Resources))
	for id := range s.template.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	zap.S().Debugf("Synthesized stack %s with %d resources: %s", s.Name, len(ids), strings.Join(ids, ", "))
	return s.template, nil
}
