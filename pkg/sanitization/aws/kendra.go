package aws

import (
	"regexp"

	"github.com/klothoplatform/genai-constructs/pkg/sanitization"
)

// KendraIndexNameSanitizer returns a sanitized Kendra index name when applied.
var KendraIndexNameSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		// strip any leading characters that are not alphanumeric
		{
			Pattern:     regexp.MustCompile(`^[^a-zA-Z0-9]+`),
			Replacement: "",
		},
		// strip any characters not matching [a-zA-Z0-9_-]
		{
			Pattern:     regexp.MustCompile(`[^\w-]+`),
			Replacement: "",
		},
	}, 1000)
