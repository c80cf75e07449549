package kendra

import (
	"errors"
	"fmt"

	"github.com/klothoplatform/genai-constructs/pkg/cfn"
	"github.com/klothoplatform/genai-constructs/pkg/construct"
	"github.com/klothoplatform/genai-constructs/pkg/provider/aws/iam"
	"github.com/klothoplatform/genai-constructs/pkg/provider/aws/kms"
	awssanitizer "github.com/klothoplatform/genai-constructs/pkg/sanitization/aws"
	"go.uber.org/zap"
)

const maxGeneratedNameLength = 40

type (
	// Index is a Kendra index, either created in the stack or imported.
	Index interface {
		// IndexId is the identifier of the index.
		IndexId() cfn.String
		// IndexArn is the ARN of the index.
		IndexArn() cfn.String
		// Role gives Kendra access to CloudWatch logs and metrics. It is also the role used
		// by BatchPutDocument to index documents from S3.
		Role() iam.Role
	}

	GenAiIndexProps struct {
		// Name of the index. Defaults to a name generated from the construct path.
		Name string
		// KmsKey encrypts indexed data. Defaults to an AWS managed key. Kendra does not
		// support asymmetric keys.
		KmsKey kms.Key
		// DocumentCapacityUnits adds 20,000 documents of capacity per unit to the baseline
		// of 20,000. Defaults to 0.
		DocumentCapacityUnits *int
		// QueryCapacityUnits adds 0.1 queries per second per unit to the baseline of 0.1.
		// Defaults to 0.
		QueryCapacityUnits *int
	}

	GenAiIndexAttributes struct {
		IndexId string
		Role    iam.Role
	}

	GenAiIndex struct {
		node                  *construct.Node
		logicalId             string
		role                  *iam.IamRole
		name                  string
		kmsKey                kms.Key
		documentCapacityUnits int
		queryCapacityUnits    int
	}

	importedGenAiIndex struct {
		node     *construct.Node
		indexId  string
		indexArn cfn.String
		role     iam.Role
	}

	indexProperties struct {
		Name                              string                             `json:"Name"`
		Edition                           Edition                            `json:"Edition"`
		RoleArn                           cfn.String                         `json:"RoleArn"`
		ServerSideEncryptionConfiguration *serverSideEncryptionConfiguration `json:"ServerSideEncryptionConfiguration,omitempty"`
		CapacityUnits                     capacityUnitsConfiguration         `json:"CapacityUnits"`
		UserContextPolicy                 UserContextPolicy                  `json:"UserContextPolicy"`
	}

	serverSideEncryptionConfiguration struct {
		KmsKeyId cfn.String `json:"KmsKeyId"`
	}

	capacityUnitsConfiguration struct {
		StorageCapacityUnits int `json:"StorageCapacityUnits"`
		QueryCapacityUnits   int `json:"QueryCapacityUnits"`
	}
)

// NewGenAiIndex creates a GEN_AI_ENTERPRISE_EDITION index together with the role Kendra
// assumes to write its logs and metrics.
func NewGenAiIndex(scope construct.Scope, id string, props GenAiIndexProps) (idx *GenAiIndex, err error) {
	idx = &GenAiIndex{
		name:   props.Name,
		kmsKey: props.KmsKey,
	}
	if props.DocumentCapacityUnits != nil {
		idx.documentCapacityUnits = *props.DocumentCapacityUnits
	}
	if props.QueryCapacityUnits != nil {
		idx.queryCapacityUnits = *props.QueryCapacityUnits
	}
	if err := idx.validate(); err != nil {
		return nil, fmt.Errorf("invalid gen ai index '%s': %w", id, err)
	}

	node, err := scope.Node().NewChild(id)
	if err != nil {
		return nil, err
	}
	stack := construct.Of(node)
	defer func() {
		if err != nil {
			if rmErr := stack.Remove(node); rmErr != nil {
				err = errors.Join(err, rmErr)
			}
			idx = nil
		}
	}()

	idx.node = node
	if idx.name == "" {
		idx.name = construct.PhysicalName(node, "genai-index", construct.NameOptions{
			MaxLength: maxGeneratedNameLength,
			Lower:     true,
			Separator: "-",
		})
	}

	idx.role, err = iam.NewRole(node, "Role", iam.RoleProps{
		RoleName:  construct.PhysicalName(node, "AmazonKendraRoleForIndex-"+idx.name, construct.NameOptions{MaxLength: 64}),
		AssumedBy: ServicePrincipal,
	})
	if err != nil {
		return nil, err
	}
	for _, stmt := range indexRoleStatements(stack) {
		if _, err := idx.role.AddToPrincipalPolicy(stmt); err != nil {
			return nil, err
		}
	}

	cfnProps := &indexProperties{
		Name:    idx.name,
		Edition: GenAiEnterpriseEdition,
		RoleArn: idx.role.RoleArn(),
		CapacityUnits: capacityUnitsConfiguration{
			StorageCapacityUnits: idx.documentCapacityUnits,
			QueryCapacityUnits:   idx.queryCapacityUnits,
		},
		UserContextPolicy: AttributeFilter,
	}
	if props.KmsKey != nil {
		cfnProps.ServerSideEncryptionConfiguration = &serverSideEncryptionConfiguration{KmsKeyId: props.KmsKey.KeyId()}
	}

	resource, err := node.NewChild("GenAiIndex")
	if err != nil {
		return nil, err
	}
	idx.logicalId, err = stack.AddResource(resource, IndexType, cfnProps)
	if err != nil {
		return nil, err
	}
	zap.S().Debugf("Created gen ai index %s named %s", node.Path(), idx.name)
	return idx, nil
}

// indexRoleStatements are the permissions every index role carries: log group discovery,
// metric publication to the Kendra namespace, and log group and stream access under the
// Kendra log prefix.
func indexRoleStatements(stack *construct.Stack) []*iam.PolicyStatement {
	return []*iam.PolicyStatement{
		{
			Effect:    iam.Allow,
			Actions:   []string{"logs:DescribeLogGroups"},
			Resources: []cfn.String{cfn.Literal("*")},
		},
		{
			Effect:    iam.Allow,
			Actions:   []string{"cloudwatch:PutMetricData"},
			Resources: []cfn.String{cfn.Literal("*")},
			Conditions: iam.Conditions{
				"StringEquals": {"cloudwatch:namespace": MetricsNamespace},
			},
		},
		{
			Effect:  iam.Allow,
			Actions: []string{"logs:CreateLogGroup"},
			Resources: []cfn.String{stack.FormatArn(construct.ArnComponents{
				Service:      "logs",
				Resource:     "log-group",
				ResourceName: LogGroupPrefix + "*",
				ArnFormat:    construct.ColonResourceName,
			})},
		},
		{
			Effect:  iam.Allow,
			Actions: []string{"logs:DescribeLogStreams", "logs:CreateLogStream", "logs:PutLogEvents"},
			Resources: []cfn.String{stack.FormatArn(construct.ArnComponents{
				Service:      "logs",
				Resource:     "log-group",
				ResourceName: LogGroupPrefix + "*:log-stream:*",
				ArnFormat:    construct.ColonResourceName,
			})},
		},
	}
}

// validate checks the props before any node is created. An empty name is generated later
// and is valid by construction.
func (idx *GenAiIndex) validate() error {
	var err error
	switch {
	case idx.name == "":
	case len(idx.name) > awssanitizer.KendraIndexNameSanitizer.MaxLength():
		err = errors.Join(err, fmt.Errorf("name must be at most %d characters, got %d",
			awssanitizer.KendraIndexNameSanitizer.MaxLength(), len(idx.name)))
	case !awssanitizer.KendraIndexNameSanitizer.Valid(idx.name):
		err = errors.Join(err, fmt.Errorf("name '%s' must start with a letter or digit and contain only letters, digits, '_' and '-'", idx.name))
	}
	if idx.documentCapacityUnits < 0 {
		err = errors.Join(err, fmt.Errorf("document capacity units must not be negative, got %d", idx.documentCapacityUnits))
	}
	if idx.queryCapacityUnits < 0 {
		err = errors.Join(err, fmt.Errorf("query capacity units must not be negative, got %d", idx.queryCapacityUnits))
	}
	return err
}

func (idx *GenAiIndex) Node() *construct.Node {
	return idx.node
}

// LogicalId is the logical ID of the AWS::Kendra::Index resource.
func (idx *GenAiIndex) LogicalId() string {
	return idx.logicalId
}

func (idx *GenAiIndex) IndexId() cfn.String {
	return cfn.GetAtt{LogicalId: idx.logicalId, Attribute: "Id"}
}

func (idx *GenAiIndex) IndexArn() cfn.String {
	return cfn.GetAtt{LogicalId: idx.logicalId, Attribute: "Arn"}
}

func (idx *GenAiIndex) Role() iam.Role {
	return idx.role
}

// IamRole returns the created role with its statements.
func (idx *GenAiIndex) IamRole() *iam.IamRole {
	return idx.role
}

func (idx *GenAiIndex) Name() string {
	return idx.name
}

func (idx *GenAiIndex) Edition() Edition {
	return GenAiEnterpriseEdition
}

func (idx *GenAiIndex) KmsKey() kms.Key {
	return idx.kmsKey
}

func (idx *GenAiIndex) DocumentCapacityUnits() int {
	return idx.documentCapacityUnits
}

func (idx *GenAiIndex) QueryCapacityUnits() int {
	return idx.queryCapacityUnits
}

// FromAttributes references an existing index. No resource is added to the stack; the
// ARN is formatted from the index id in the stack's environment.
func FromAttributes(scope construct.Scope, id string, attrs GenAiIndexAttributes) (Index, error) {
	var err error
	if attrs.IndexId == "" {
		err = errors.Join(err, errors.New("index id is required"))
	}
	if attrs.Role == nil {
		err = errors.Join(err, errors.New("role is required"))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid attributes for imported index '%s': %w", id, err)
	}
	node, err := scope.Node().NewChild(id)
	if err != nil {
		return nil, err
	}
	return &importedGenAiIndex{
		node:    node,
		indexId: attrs.IndexId,
		indexArn: construct.Of(node).FormatArn(construct.ArnComponents{
			Service:      "kendra",
			Resource:     "index",
			ResourceName: attrs.IndexId,
			ArnFormat:    construct.SlashResourceName,
		}),
		role: attrs.Role,
	}, nil
}

func (idx *importedGenAiIndex) Node() *construct.Node {
	return idx.node
}

func (idx *importedGenAiIndex) IndexId() cfn.String {
	return cfn.Literal(idx.indexId)
}

func (idx *importedGenAiIndex) IndexArn() cfn.String {
	return idx.indexArn
}

func (idx *importedGenAiIndex) Role() iam.Role {
	return idx.role
}
