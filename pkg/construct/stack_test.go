package construct

import (
	"testing"

	"github.com/klothoplatform/genai-constructs/pkg/cfn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStack(t *testing.T) {
	tests := []struct {
		name    string
		stack   string
		wantErr bool
	}{
		{name: "valid", stack: "my-stack-1"},
		{name: "leading digit", stack: "1stack", wantErr: true},
		{name: "underscore", stack: "my_stack", wantErr: true},
		{name: "empty", stack: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStack(tt.stack, Environment{}, "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStack_FormatArn(t *testing.T) {
	concrete := Environment{Account: "123456789012", Region: "us-east-1"}
	tests := []struct {
		name       string
		env        Environment
		components ArnComponents
		want       cfn.String
	}{
		{
			name:       "environment agnostic",
			components: ArnComponents{Service: "kendra", Resource: "index", ResourceName: "abc"},
			want:       cfn.Sub("arn:${AWS::Partition}:kendra:${AWS::Region}:${AWS::AccountId}:index/abc"),
		},
		{
			name:       "substitution in resource name",
			components: ArnComponents{Service: "kendra", Resource: "index", ResourceName: "id-${Other}"},
			want:       cfn.Sub("arn:${AWS::Partition}:kendra:${AWS::Region}:${AWS::AccountId}:index/id-${!Other}"),
		},
		{
			name:       "substitution with concrete environment",
			env:        concrete,
			components: ArnComponents{Service: "kendra", Resource: "index", ResourceName: "id-${Other}"},
			want:       cfn.Literal("arn:aws:kendra:us-east-1:123456789012:index/id-${Other}"),
		},
		{
			name:       "concrete",
			env:        concrete,
			components: ArnComponents{Service: "kendra", Resource: "index", ResourceName: "abc"},
			want:       cfn.Literal("arn:aws:kendra:us-east-1:123456789012:index/abc"),
		},
		{
			name: "colon resource name",
			env:  concrete,
			components: ArnComponents{
				Service:      "logs",
				Resource:     "log-group",
				ResourceName: "/aws/kendra/*:log-stream:*",
				ArnFormat:    ColonResourceName,
			},
			want: cfn.Literal("arn:aws:logs:us-east-1:123456789012:log-group:/aws/kendra/*:log-stream:*"),
		},
		{
			name:       "no resource name",
			env:        concrete,
			components: ArnComponents{Service: "sqs", Resource: "queue", ResourceName: "ignored", ArnFormat: NoResourceName},
			want:       cfn.Literal("arn:aws:sqs:us-east-1:123456789012:queue"),
		},
		{
			name:       "global concrete",
			env:        concrete,
			components: ArnComponents{Service: "iam", Resource: "root", ArnFormat: NoResourceName, Global: true},
			want:       cfn.Literal("arn:aws:iam::123456789012:root"),
		},
		{
			name:       "global agnostic",
			components: ArnComponents{Service: "iam", Resource: "root", ArnFormat: NoResourceName, Global: true},
			want:       cfn.Sub("arn:${AWS::Partition}:iam::${AWS::AccountId}:root"),
		},
		{
			name:       "region only",
			env:        Environment{Region: "us-west-2"},
			components: ArnComponents{Service: "kendra", Resource: "index", ResourceName: "abc"},
			want:       cfn.Sub("arn:aws:kendra:us-west-2:${AWS::AccountId}:index/abc"),
		},
		{
			name:       "china partition",
			env:        Environment{Account: "123456789012", Region: "cn-north-1"},
			components: ArnComponents{Service: "kendra", Resource: "index", ResourceName: "abc"},
			want:       cfn.Literal("arn:aws-cn:kendra:cn-north-1:123456789012:index/abc"),
		},
		{
			name:       "component overrides",
			env:        concrete,
			components: ArnComponents{Service: "kendra", Resource: "index", ResourceName: "abc", Region: "eu-west-1", Account: "210987654321"},
			want:       cfn.Literal("arn:aws:kendra:eu-west-1:210987654321:index/abc"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack, err := NewStack("TestStack", tt.env, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, stack.FormatArn(tt.components))
		})
	}
}

func TestStack_FormatArnSynthesizes(t *testing.T) {
	stack, err := NewStack("TestStack", Environment{}, "")
	require.NoError(t, err)
	node, err := stack.Node().NewChild("Thing")
	require.NoError(t, err)
	arn := stack.FormatArn(ArnComponents{Service: "kendra", Resource: "index", ResourceName: "${Missing}"})
	_, err = stack.AddResource(node, "AWS::Test::Thing", map[string]any{"Target": arn})
	require.NoError(t, err)

	_, err = stack.Synth()
	assert.NoError(t, err)
}

func TestPartitionForRegion(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("", PartitionForRegion(""))
	assert.Equal("aws", PartitionForRegion("eu-central-1"))
	assert.Equal("aws-cn", PartitionForRegion("cn-northwest-1"))
	assert.Equal("aws-us-gov", PartitionForRegion("us-gov-west-1"))
}

func TestStack_AddResource(t *testing.T) {
	assert := assert.New(t)
	stack, err := NewStack("TestStack", Environment{}, "")
	require.NoError(t, err)
	node, err := stack.Node().NewChild("My-Index")
	require.NoError(t, err)
	resource, err := node.NewChild("Resource")
	require.NoError(t, err)

	id, err := stack.AddResource(resource, "AWS::Test::Thing", nil)
	require.NoError(t, err)
	assert.Regexp(`^MyIndex[0-9A-F]{8}$`, id)
	assert.Equal(id, stack.LogicalId(resource))
	assert.Contains(stack.Template().Resources, id)

	_, err = stack.AddResource(resource, "AWS::Test::Thing", nil)
	assert.ErrorIs(err, cfn.ErrDuplicateLogicalId)

	other, err := NewStack("Other", Environment{}, "")
	require.NoError(t, err)
	_, err = other.AddResource(resource, "AWS::Test::Thing", nil)
	assert.Error(err)
}

func TestStack_Remove(t *testing.T) {
	assert := assert.New(t)
	stack, err := NewStack("TestStack", Environment{}, "")
	require.NoError(t, err)
	keep, err := stack.Node().NewChild("Keep")
	require.NoError(t, err)
	keepId, err := stack.AddResource(keep, "AWS::Test::Thing", nil)
	require.NoError(t, err)

	node, err := stack.Node().NewChild("Index")
	require.NoError(t, err)
	role, err := node.NewChild("Role")
	require.NoError(t, err)
	roleResource, err := role.NewChild("Resource")
	require.NoError(t, err)
	_, err = stack.AddResource(roleResource, "AWS::IAM::Role", nil)
	require.NoError(t, err)

	require.NoError(t, stack.Remove(node))
	assert.Equal([]string{keepId}, keys(stack.Template().Resources))
	_, ok := stack.Node().Child("Index")
	assert.False(ok)
	assert.Equal([]*Node{keep}, stack.Node().Children())

	_, err = stack.Node().NewChild("Index")
	assert.NoError(err)

	assert.Error(stack.Remove(stack.Node()))
	other, err := NewStack("Other", Environment{}, "")
	require.NoError(t, err)
	assert.Error(other.Remove(keep))
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestStack_LogicalIdDiffersByPath(t *testing.T) {
	stack, err := NewStack("TestStack", Environment{}, "")
	require.NoError(t, err)
	a, err := stack.Node().NewChild("AB")
	require.NoError(t, err)
	parent, err := stack.Node().NewChild("A")
	require.NoError(t, err)
	b, err := parent.NewChild("B")
	require.NoError(t, err)

	assert.NotEqual(t, stack.LogicalId(a), stack.LogicalId(b))
}

func TestStack_Synth(t *testing.T) {
	stack, err := NewStack("TestStack", Environment{}, "")
	require.NoError(t, err)
	node, err := stack.Node().NewChild("Thing")
	require.NoError(t, err)
	_, err = stack.AddResource(node, "AWS::Test::Thing", map[string]any{"Target": cfn.Ref{LogicalId: "Missing"}})
	require.NoError(t, err)

	_, err = stack.Synth()
	assert.ErrorIs(t, err, cfn.ErrUnresolvedReference)
}
