package kms

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/klothoplatform/genai-constructs/pkg/cfn"
	"github.com/klothoplatform/genai-constructs/pkg/construct"
	"github.com/klothoplatform/genai-constructs/pkg/provider/aws/iam"
)

const KeyType = "AWS::KMS::Key"

type (
	// Key is a KMS key usable for server-side encryption.
	Key interface {
		KeyId() cfn.String
		KeyArn() cfn.String
	}

	KeyProps struct {
		Description       string
		EnableKeyRotation bool
	}

	CustomerManagedKey struct {
		node      *construct.Node
		logicalId string
	}

	ImportedKey struct {
		arn string
		id  string
	}

	keyProperties struct {
		Description       string              `json:"Description,omitempty"`
		EnableKeyRotation bool                `json:"EnableKeyRotation"`
		KeyPolicy         *iam.PolicyDocument `json:"KeyPolicy"`
	}
)

// NewKey creates a symmetric key whose policy delegates access control to IAM in the
// stack's account.
func NewKey(scope construct.Scope, id string, props KeyProps) (*CustomerManagedKey, error) {
	node, err := scope.Node().NewChild(id)
	if err != nil {
		return nil, err
	}
	resource, err := node.NewChild("Resource")
	if err != nil {
		return nil, err
	}
	stack := construct.Of(node)
	root := stack.FormatArn(construct.ArnComponents{
		Service:   "iam",
		Resource:  "root",
		ArnFormat: construct.NoResourceName,
		Global:    true,
	})
	logicalId, err := stack.AddResource(resource, KeyType, &keyProperties{
		Description:       props.Description,
		EnableKeyRotation: props.EnableKeyRotation,
		KeyPolicy: iam.NewPolicyDocument(&iam.PolicyStatement{
			Effect:    iam.Allow,
			Actions:   []string{"kms:*"},
			Resources: []cfn.String{cfn.Literal("*")},
			Principal: &iam.Principal{AWS: root},
		}),
	})
	if err != nil {
		return nil, err
	}
	return &CustomerManagedKey{node: node, logicalId: logicalId}, nil
}

func (k *CustomerManagedKey) Node() *construct.Node {
	return k.node
}

func (k *CustomerManagedKey) LogicalId() string {
	return k.logicalId
}

func (k *CustomerManagedKey) KeyId() cfn.String {
	return cfn.Ref{LogicalId: k.logicalId}
}

func (k *CustomerManagedKey) KeyArn() cfn.String {
	return cfn.GetAtt{LogicalId: k.logicalId, Attribute: "Arn"}
}

// FromKeyArn references an existing key by its ARN. Alias ARNs are rejected since the
// key id cannot be derived from them.
func FromKeyArn(keyArn string) (*ImportedKey, error) {
	parsed, err := arn.Parse(keyArn)
	if err != nil {
		return nil, fmt.Errorf("invalid key arn '%s': %w", keyArn, err)
	}
	if parsed.Service != "kms" {
		return nil, fmt.Errorf("arn '%s' is not a KMS arn", keyArn)
	}
	id, ok := strings.CutPrefix(parsed.Resource, "key/")
	if !ok || id == "" {
		return nil, fmt.Errorf("arn '%s' does not reference a KMS key", keyArn)
	}
	return &ImportedKey{arn: keyArn, id: id}, nil
}

func (k *ImportedKey) KeyId() cfn.String {
	return cfn.Literal(k.id)
}

func (k *ImportedKey) KeyArn() cfn.String {
	return cfn.Literal(k.arn)
}
