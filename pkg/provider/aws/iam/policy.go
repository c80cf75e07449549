package iam

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/klothoplatform/genai-constructs/pkg/cfn"
)

const PolicyVersion = "2012-10-17"

type Effect string

const (
	Allow Effect = "Allow"
	Deny  Effect = "Deny"
)

var actionPattern = regexp.MustCompile(`^(\*|[a-zA-Z0-9-]+:[a-zA-Z0-9*]+)$`)

type (
	PolicyDocument struct {
		Version   string
		Statement []*PolicyStatement
	}

	PolicyStatement struct {
		Sid       string
		Effect    Effect
		Actions   []string
		Resources []cfn.String
		Principal *Principal
		// Conditions maps a condition operator to its key/value pairs, e.g.
		// {"StringEquals": {"cloudwatch:namespace": "AWS/Kendra"}}.
		Conditions Conditions
	}

	Principal struct {
		Service string
		AWS     cfn.String
	}

	Conditions map[string]map[string]any
)

func NewPolicyDocument(statements ...*PolicyStatement) *PolicyDocument {
	return &PolicyDocument{Version: PolicyVersion, Statement: statements}
}

func (d *PolicyDocument) MarshalJSON() ([]byte, error) {
	statements := d.Statement
	if statements == nil {
		statements = []*PolicyStatement{}
	}
	version := d.Version
	if version == "" {
		version = PolicyVersion
	}
	return json.Marshal(struct {
		Version   string             `json:"Version"`
		Statement []*PolicyStatement `json:"Statement"`
	}{version, statements})
}

func (p *Principal) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if p.Service != "" {
		out["Service"] = p.Service
	}
	if p.AWS != nil {
		out["AWS"] = p.AWS
	}
	return json.Marshal(out)
}

// MarshalJSON renders the statement in IAM policy grammar. A single action or resource
// is rendered as a scalar rather than a one element list.
func (s *PolicyStatement) MarshalJSON() ([]byte, error) {
	effect := s.Effect
	if effect == "" {
		effect = Allow
	}
	out := struct {
		Sid       string     `json:"Sid,omitempty"`
		Effect    Effect     `json:"Effect"`
		Principal *Principal `json:"Principal,omitempty"`
		Action    any        `json:"Action,omitempty"`
		Resource  any        `json:"Resource,omitempty"`
		Condition Conditions `json:"Condition,omitempty"`
	}{
		Sid:       s.Sid,
		Effect:    effect,
		Principal: s.Principal,
		Condition: s.Conditions,
	}
	switch len(s.Actions) {
	case 0:
	case 1:
		out.Action = s.Actions[0]
	default:
		out.Action = s.Actions
	}
	switch len(s.Resources) {
	case 0:
	case 1:
		out.Resource = s.Resources[0]
	default:
		out.Resource = s.Resources
	}
	return json.Marshal(out)
}

// Copy returns a deep copy of the statement's slices and maps.
func (s *PolicyStatement) Copy() *PolicyStatement {
	c := *s
	c.Actions = append([]string(nil), s.Actions...)
	c.Resources = append([]cfn.String(nil), s.Resources...)
	if s.Principal != nil {
		p := *s.Principal
		c.Principal = &p
	}
	if s.Conditions != nil {
		c.Conditions = make(Conditions, len(s.Conditions))
		for op, kv := range s.Conditions {
			c.Conditions[op] = make(map[string]any, len(kv))
			for k, v := range kv {
				c.Conditions[op][k] = v
			}
		}
	}
	return &c
}

func (s *PolicyStatement) validate() error {
	var err error
	switch s.Effect {
	case "", Allow, Deny:
	default:
		err = errors.Join(err, fmt.Errorf("invalid effect '%s'", s.Effect))
	}
	if len(s.Actions) == 0 {
		err = errors.Join(err, errors.New("statement must have at least one action"))
	}
	for _, a := range s.Actions {
		if !actionPattern.MatchString(a) {
			err = errors.Join(err, fmt.Errorf("invalid action '%s' (must match %s)", a, actionPattern))
		}
	}
	return err
}

// ValidateForIdentityPolicy checks that the statement can be attached to a role: it needs
// resources and must not name a principal.
func (s *PolicyStatement) ValidateForIdentityPolicy() error {
	err := s.validate()
	if len(s.Resources) == 0 {
		err = errors.Join(err, errors.New("identity policy statement must have at least one resource"))
	}
	if s.Principal != nil {
		err = errors.Join(err, errors.New("identity policy statement must not specify a principal"))
	}
	return err
}

// ValidateForResourcePolicy checks that the statement can be used in a resource or trust
// policy: it must name a principal.
func (s *PolicyStatement) ValidateForResourcePolicy() error {
	err := s.validate()
	if s.Principal == nil || (s.Principal.Service == "" && s.Principal.AWS == nil) {
		err = errors.Join(err, errors.New("resource policy statement must specify a principal"))
	}
	return err
}
