package aws

import (
	"regexp"

	"github.com/klothoplatform/genai-constructs/pkg/sanitization"
)

// LogicalIdSanitizer strips everything CloudFormation does not accept in a logical ID.
var LogicalIdSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^A-Za-z0-9]+`),
			Replacement: "",
		},
	}, 255)

// StackNameSanitizer returns a sanitized stack name when applied.
var StackNameSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`^[^a-zA-Z]+`),
			Replacement: "",
		},
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9-]+`),
			Replacement: "-",
		},
	}, 128)
