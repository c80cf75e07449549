package cfn

import (
	"encoding/json"
	"fmt"
)

const (
	PartitionParam = "AWS::Partition"
	RegionParam    = "AWS::Region"
	AccountIdParam = "AWS::AccountId"
	StackNameParam = "AWS::StackName"
	URLSuffixParam = "AWS::URLSuffix"
)

type (
	// String is a string-typed property value. It is either a literal or an intrinsic
	// function that CloudFormation resolves at deploy time.
	String interface {
		fmt.Stringer
		isString()
	}

	Literal string

	Ref struct {
		LogicalId string
	}

	GetAtt struct {
		LogicalId string
		Attribute string
	}

	// Sub is an Fn::Sub expression. References use the `${LogicalId}` or
	// `${LogicalId.Attribute}` form.
	Sub string
)

func (Literal) isString() {}
func (Ref) isString()     {}
func (GetAtt) isString()  {}
func (Sub) isString()     {}

func (l Literal) String() string {
	return string(l)
}

func (r Ref) String() string {
	return fmt.Sprintf("${%s}", r.LogicalId)
}

func (g GetAtt) String() string {
	return fmt.Sprintf("${%s.%s}", g.LogicalId, g.Attribute)
}

func (s Sub) String() string {
	return string(s)
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Ref": r.LogicalId})
}

func (g GetAtt) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{"Fn::GetAtt": {g.LogicalId, g.Attribute}})
}

func (s Sub) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Fn::Sub": string(s)})
}

// IsLiteral reports whether s is known at synthesis time.
func IsLiteral(s String) bool {
	_, ok := s.(Literal)
	return ok
}

// IsPseudoParameter reports whether name refers to one of the AWS:: pseudo parameters.
func IsPseudoParameter(name string) bool {
	return len(name) > 5 && name[:5] == "AWS::"
}
