package iam

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/klothoplatform/genai-constructs/pkg/cfn"
	"github.com/klothoplatform/genai-constructs/pkg/construct"
	"github.com/klothoplatform/genai-constructs/pkg/sanitization/aws"
	"go.uber.org/zap"
)

const (
	RoleType   = "AWS::IAM::Role"
	PolicyType = "AWS::IAM::Policy"
)

var (
	roleSanitizer   = aws.IamRoleSanitizer
	policySanitizer = aws.IamPolicySanitizer
)

type (
	// Role is an IAM role that other constructs can reference and grant permissions to.
	Role interface {
		RoleArn() cfn.String
		RoleName() cfn.String
		// AddToPrincipalPolicy attaches the statement to the role's identity policy. It
		// reports false when the role cannot be modified, as for imported roles.
		AddToPrincipalPolicy(*PolicyStatement) (bool, error)
	}

	RoleProps struct {
		// RoleName is sanitized to IAM's role name charset. Left empty, CloudFormation
		// generates a name.
		RoleName string
		// AssumedBy is the service principal trusted to assume the role, such as
		// "kendra.amazonaws.com".
		AssumedBy         string
		Description       string
		ManagedPolicyArns []string
	}

	IamRole struct {
		node          *construct.Node
		logicalId     string
		properties    *roleProperties
		defaultPolicy *policyProperties
		policyId      string
	}

	ImportedRole struct {
		arn  string
		name string
	}

	roleProperties struct {
		RoleName                 string          `json:"RoleName,omitempty"`
		Description              string          `json:"Description,omitempty"`
		AssumeRolePolicyDocument *PolicyDocument `json:"AssumeRolePolicyDocument"`
		ManagedPolicyArns        []string        `json:"ManagedPolicyArns,omitempty"`
	}

	policyProperties struct {
		PolicyName     string          `json:"PolicyName"`
		PolicyDocument *PolicyDocument `json:"PolicyDocument"`
		Roles          []cfn.String    `json:"Roles"`
	}
)

func NewRole(scope construct.Scope, id string, props RoleProps) (*IamRole, error) {
	if props.AssumedBy == "" {
		return nil, errors.New("role must be assumable by a service principal")
	}
	node, err := scope.Node().NewChild(id)
	if err != nil {
		return nil, err
	}
	resource, err := node.NewChild("Resource")
	if err != nil {
		return nil, err
	}

	trust := &PolicyStatement{
		Effect:    Allow,
		Actions:   []string{"sts:AssumeRole"},
		Principal: &Principal{Service: props.AssumedBy},
	}
	if err := trust.ValidateForResourcePolicy(); err != nil {
		return nil, fmt.Errorf("invalid trust policy for role '%s': %w", node.Path(), err)
	}

	role := &IamRole{
		node: node,
		properties: &roleProperties{
			Description:              props.Description,
			AssumeRolePolicyDocument: NewPolicyDocument(trust),
			ManagedPolicyArns:        props.ManagedPolicyArns,
		},
	}
	if props.RoleName != "" {
		role.properties.RoleName = roleSanitizer.Apply(props.RoleName)
	}
	role.logicalId, err = construct.Of(node).AddResource(resource, RoleType, role.properties)
	if err != nil {
		return nil, err
	}
	zap.S().Debugf("Created role %s assumed by %s", node.Path(), props.AssumedBy)
	return role, nil
}

func (r *IamRole) Node() *construct.Node {
	return r.node
}

func (r *IamRole) LogicalId() string {
	return r.logicalId
}

func (r *IamRole) RoleArn() cfn.String {
	return cfn.GetAtt{LogicalId: r.logicalId, Attribute: "Arn"}
}

func (r *IamRole) RoleName() cfn.String {
	return cfn.Ref{LogicalId: r.logicalId}
}

// PhysicalName is the sanitized role name, or "" when CloudFormation generates it.
func (r *IamRole) PhysicalName() string {
	return r.properties.RoleName
}

// AssumeRolePolicy returns the role's trust policy.
func (r *IamRole) AssumeRolePolicy() *PolicyDocument {
	return r.properties.AssumeRolePolicyDocument
}

// AddToPrincipalPolicy adds the statement to the role's default policy, creating the
// policy on first use.
func (r *IamRole) AddToPrincipalPolicy(stmt *PolicyStatement) (bool, error) {
	if err := stmt.ValidateForIdentityPolicy(); err != nil {
		return false, fmt.Errorf("invalid statement for role '%s': %w", r.node.Path(), err)
	}
	if r.defaultPolicy == nil {
		policyNode, err := r.node.NewChild("DefaultPolicy")
		if err != nil {
			return false, err
		}
		resource, err := policyNode.NewChild("Resource")
		if err != nil {
			return false, err
		}
		stack := construct.Of(policyNode)
		props := &policyProperties{
			PolicyName:     policySanitizer.Apply(stack.LogicalId(resource)),
			PolicyDocument: NewPolicyDocument(),
			Roles:          []cfn.String{r.RoleName()},
		}
		id, err := stack.AddResource(resource, PolicyType, props)
		if err != nil {
			return false, err
		}
		r.defaultPolicy = props
		r.policyId = id
	}
	r.defaultPolicy.PolicyDocument.Statement = append(r.defaultPolicy.PolicyDocument.Statement, stmt.Copy())
	return true, nil
}

// Statements returns copies of the statements attached through AddToPrincipalPolicy.
func (r *IamRole) Statements() []*PolicyStatement {
	if r.defaultPolicy == nil {
		return nil
	}
	out := make([]*PolicyStatement, len(r.defaultPolicy.PolicyDocument.Statement))
	for i, s := range r.defaultPolicy.PolicyDocument.Statement {
		out[i] = s.Copy()
	}
	return out
}

// DefaultPolicyLogicalId is the logical ID of the role's default policy, or "" before any
// statement was added.
func (r *IamRole) DefaultPolicyLogicalId() string {
	return r.policyId
}

// FromRoleArn references an existing role. Role paths are allowed; the role name is the
// last path segment.
func FromRoleArn(roleArn string) (*ImportedRole, error) {
	parsed, err := arn.Parse(roleArn)
	if err != nil {
		return nil, fmt.Errorf("invalid role arn '%s': %w", roleArn, err)
	}
	if parsed.Service != "iam" || !strings.HasPrefix(parsed.Resource, "role/") {
		return nil, fmt.Errorf("arn '%s' is not an IAM role arn", roleArn)
	}
	name := parsed.Resource[strings.LastIndex(parsed.Resource, "/")+1:]
	if name == "" {
		return nil, fmt.Errorf("arn '%s' has no role name", roleArn)
	}
	return &ImportedRole{arn: roleArn, name: name}, nil
}

func (r *ImportedRole) RoleArn() cfn.String {
	return cfn.Literal(r.arn)
}

func (r *ImportedRole) RoleName() cfn.String {
	return cfn.Literal(r.name)
}

func (r *ImportedRole) AddToPrincipalPolicy(stmt *PolicyStatement) (bool, error) {
	zap.S().Debugf("Not adding statement to imported role %s", r.arn)
	return false, nil
}
