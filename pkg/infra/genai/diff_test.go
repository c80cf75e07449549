package genai

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/klothoplatform/genai-constructs/pkg/provider/aws/kendra"
	"github.com/lithammer/dedent"
	"github.com/r3labs/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseTemplate = `
	{
	  "Resources": {
	    "Index": {
	      "Type": "AWS::Kendra::Index",
	      "Properties": {
	        "Name": "docs",
	        "Edition": "GEN_AI_ENTERPRISE_EDITION",
	        "RoleArn": {"Fn::GetAtt": ["Role", "Arn"]},
	        "CapacityUnits": {"StorageCapacityUnits": 0, "QueryCapacityUnits": 0}
	      }
	    },
	    "Role": {
	      "Type": "AWS::IAM::Role",
	      "Properties": {"RoleName": "kendra-role"}
	    },
	    "Key": {
	      "Type": "AWS::KMS::Key",
	      "Properties": {"EnableKeyRotation": true}
	    }
	  }
	}
	`

func TestDiffTemplates(t *testing.T) {
	tests := []struct {
		name  string
		after string
		want  []ResourceChange
	}{
		{
			name:  "no changes",
			after: baseTemplate,
		},
		{
			name: "capacity change modifies the index",
			after: `
				Resources:
				  Index:
				    Type: AWS::Kendra::Index
				    Properties:
				      Name: docs
				      Edition: GEN_AI_ENTERPRISE_EDITION
				      RoleArn:
				        Fn::GetAtt: [Role, Arn]
				      CapacityUnits:
				        StorageCapacityUnits: 2
				        QueryCapacityUnits: 0
				  Role:
				    Type: AWS::IAM::Role
				    Properties:
				      RoleName: kendra-role
				  Key:
				    Type: AWS::KMS::Key
				    Properties:
				      EnableKeyRotation: true
				`,
			want: []ResourceChange{
				{
					LogicalId: "Index",
					Type:      "AWS::Kendra::Index",
					Action:    ActionModify,
					Changes: diff.Changelog{
						{Type: diff.UPDATE, Path: []string{"CapacityUnits", "StorageCapacityUnits"}, From: 0, To: 2},
					},
				},
			},
		},
		{
			name: "rename replaces the index and key removal",
			after: `
				{
				  "Resources": {
				    "Index": {
				      "Type": "AWS::Kendra::Index",
				      "Properties": {
				        "Name": "docs-v2",
				        "Edition": "GEN_AI_ENTERPRISE_EDITION",
				        "RoleArn": {"Fn::GetAtt": ["Role", "Arn"]},
				        "CapacityUnits": {"StorageCapacityUnits": 0, "QueryCapacityUnits": 0},
				        "ServerSideEncryptionConfiguration": {"KmsKeyId": "abc"}
				      }
				    },
				    "Role": {
				      "Type": "AWS::IAM::Role",
				      "Properties": {"RoleName": "kendra-role"}
				    },
				    "Bucket": {
				      "Type": "AWS::S3::Bucket"
				    }
				  }
				}
				`,
			want: []ResourceChange{
				{LogicalId: "Bucket", Type: "AWS::S3::Bucket", Action: ActionAdd},
				{
					LogicalId: "Index",
					Type:      "AWS::Kendra::Index",
					Action:    ActionReplace,
					Changes: diff.Changelog{
						{Type: diff.UPDATE, Path: []string{"Name"}, From: "docs", To: "docs-v2"},
						{Type: diff.CREATE, Path: []string{"ServerSideEncryptionConfiguration"}, To: map[string]any{"KmsKeyId": "abc"}},
					},
				},
				{LogicalId: "Key", Type: "AWS::KMS::Key", Action: ActionRemove},
			},
		},
		{
			name: "literal replaced by intrinsic",
			after: `
				Resources:
				  Index:
				    Type: AWS::Kendra::Index
				    Properties:
				      Name: docs
				      Edition: GEN_AI_ENTERPRISE_EDITION
				      RoleArn: arn:aws:iam::123456789012:role/Kendra
				      CapacityUnits:
				        StorageCapacityUnits: 0
				        QueryCapacityUnits: 0
				  Role:
				    Type: AWS::IAM::Role
				    Properties:
				      RoleName: kendra-role
				  Key:
				    Type: AWS::KMS::Key
				    Properties:
				      EnableKeyRotation: true
				`,
			want: []ResourceChange{
				{
					LogicalId: "Index",
					Type:      "AWS::Kendra::Index",
					Action:    ActionModify,
					Changes: diff.Changelog{
						{
							Type: diff.UPDATE,
							Path: []string{"RoleArn"},
							From: map[string]any{"Fn::GetAtt": []any{"Role", "Arn"}},
							To:   "arn:aws:iam::123456789012:role/Kendra",
						},
					},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiffTemplates([]byte(dedent.Dedent(baseTemplate)), []byte(dedent.Dedent(tt.after)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiffTemplates_InvalidInput(t *testing.T) {
	valid := []byte(dedent.Dedent(baseTemplate))
	_, err := DiffTemplates([]byte("Resources: ["), valid)
	assert.Error(t, err)
	_, err = DiffTemplates(valid, []byte("Resources: ["))
	assert.Error(t, err)
}

func TestDiffTemplates_SynthesizedRename(t *testing.T) {
	app := testApp()
	before, err := Synth(app)
	require.NoError(t, err)

	app = testApp()
	app.Indexes["support"].Name = "support-index-v2"
	after, err := Synth(app)
	require.NoError(t, err)

	beforeJSON, err := before.Template.RenderJSON()
	require.NoError(t, err)
	afterYAML, err := after.Template.RenderYAML()
	require.NoError(t, err)

	changes, err := DiffTemplates(beforeJSON, afterYAML)
	require.NoError(t, err)

	byId := make(map[string]ResourceChange)
	for _, c := range changes {
		byId[c.LogicalId] = c
	}
	support := after.Indexes["support"].(*kendra.GenAiIndex)
	assert.Equal(t, ActionReplace, byId[support.LogicalId()].Action)
	// the role name is derived from the index name
	assert.Equal(t, ActionReplace, byId[support.IamRole().LogicalId()].Action)
	assert.NotContains(t, byId, before.Indexes["docs"].(*kendra.GenAiIndex).LogicalId())
}

func TestPrintChanges(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	PrintChanges(&buf, nil)
	assert.Equal(t, "No changes\n", buf.String())

	buf.Reset()
	PrintChanges(&buf, []ResourceChange{
		{LogicalId: "Bucket", Type: "AWS::S3::Bucket", Action: ActionAdd},
		{
			LogicalId: "Index",
			Type:      "AWS::Kendra::Index",
			Action:    ActionReplace,
			Changes:   diff.Changelog{{Type: diff.UPDATE, Path: []string{"Name"}, From: "a", To: "b"}},
		},
	})
	assert.Equal(t, dedent.Dedent(`
		+ Bucket (AWS::S3::Bucket)
		! Index (AWS::Kendra::Index) requires replacement
		    update Name: a -> b
		`)[1:], buf.String())
}
