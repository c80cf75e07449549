package aws

import (
	"regexp"

	"github.com/klothoplatform/genai-constructs/pkg/sanitization"
)

// S3BucketNameSanitizer returns a sanitized bucket name when applied.
var S3BucketNameSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		// bucket names are lowercase
		{
			Pattern:     regexp.MustCompile(`[A-Z]+`),
			Replacement: "",
		},
		// must start and end with a letter or number
		{
			Pattern:     regexp.MustCompile(`^[^a-z0-9]+|[^a-z0-9]+$`),
			Replacement: "",
		},
		{
			Pattern:     regexp.MustCompile(`[^a-z0-9.-]`),
			Replacement: "-",
		},
	},
	63,
)
