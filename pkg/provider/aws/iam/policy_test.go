package iam

import (
	"encoding/json"
	"testing"

	"github.com/klothoplatform/genai-constructs/pkg/cfn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyStatement_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		stmt *PolicyStatement
		want string
	}{
		{
			name: "single action and resource",
			stmt: &PolicyStatement{
				Actions:   []string{"logs:DescribeLogGroups"},
				Resources: []cfn.String{cfn.Literal("*")},
			},
			want: `{"Effect":"Allow","Action":"logs:DescribeLogGroups","Resource":"*"}`,
		},
		{
			name: "multiple actions with condition",
			stmt: &PolicyStatement{
				Sid:       "Metrics",
				Effect:    Allow,
				Actions:   []string{"a:One", "a:Two"},
				Resources: []cfn.String{cfn.Literal("x"), cfn.GetAtt{LogicalId: "Role", Attribute: "Arn"}},
				Conditions: Conditions{
					"StringEquals": {"cloudwatch:namespace": "AWS/Kendra"},
				},
			},
			want: `{
				"Sid":"Metrics",
				"Effect":"Allow",
				"Action":["a:One","a:Two"],
				"Resource":["x",{"Fn::GetAtt":["Role","Arn"]}],
				"Condition":{"StringEquals":{"cloudwatch:namespace":"AWS/Kendra"}}
			}`,
		},
		{
			name: "trust statement",
			stmt: &PolicyStatement{
				Effect:    Allow,
				Actions:   []string{"sts:AssumeRole"},
				Principal: &Principal{Service: "kendra.amazonaws.com"},
			},
			want: `{"Effect":"Allow","Action":"sts:AssumeRole","Principal":{"Service":"kendra.amazonaws.com"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.stmt)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestPolicyDocument_MarshalJSON(t *testing.T) {
	got, err := json.Marshal(NewPolicyDocument())
	require.NoError(t, err)
	assert.JSONEq(t, `{"Version":"2012-10-17","Statement":[]}`, string(got))
}

func TestPolicyStatement_Validate(t *testing.T) {
	tests := []struct {
		name        string
		stmt        *PolicyStatement
		identityErr bool
		resourceErr bool
	}{
		{
			name:        "identity statement",
			stmt:        &PolicyStatement{Actions: []string{"logs:CreateLogGroup"}, Resources: []cfn.String{cfn.Literal("*")}},
			resourceErr: true,
		},
		{
			name:        "trust statement",
			stmt:        &PolicyStatement{Actions: []string{"sts:AssumeRole"}, Principal: &Principal{Service: "kendra.amazonaws.com"}},
			identityErr: true,
		},
		{
			name:        "no actions",
			stmt:        &PolicyStatement{Resources: []cfn.String{cfn.Literal("*")}, Principal: &Principal{Service: "x"}},
			identityErr: true,
			resourceErr: true,
		},
		{
			name:        "malformed action",
			stmt:        &PolicyStatement{Actions: []string{"CreateLogGroup"}, Resources: []cfn.String{cfn.Literal("*")}},
			identityErr: true,
			resourceErr: true,
		},
		{
			name:        "bad effect",
			stmt:        &PolicyStatement{Effect: "Maybe", Actions: []string{"*"}, Resources: []cfn.String{cfn.Literal("*")}},
			identityErr: true,
			resourceErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.identityErr, tt.stmt.ValidateForIdentityPolicy() != nil)
			assert.Equal(t, tt.resourceErr, tt.stmt.ValidateForResourcePolicy() != nil)
		})
	}
}

func TestPolicyStatement_Copy(t *testing.T) {
	assert := assert.New(t)
	orig := &PolicyStatement{
		Actions:    []string{"a:B"},
		Resources:  []cfn.String{cfn.Literal("*")},
		Conditions: Conditions{"StringEquals": {"k": "v"}},
	}
	c := orig.Copy()
	c.Actions[0] = "changed:Action"
	c.Conditions["StringEquals"]["k"] = "changed"

	assert.Equal("a:B", orig.Actions[0])
	assert.Equal("v", orig.Conditions["StringEquals"]["k"])
}
