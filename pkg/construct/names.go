package construct

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/klothoplatform/genai-constructs/pkg/sanitization/aws"
	"go.uber.org/zap"
)

const defaultMaxNameLength = 256

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]+`)

type NameOptions struct {
	// MaxLength bounds the generated name. Defaults to 256.
	MaxLength int
	// Lower lowercases the whole name, including the prefix.
	Lower bool
	// Separator goes between the prefix, the path components, and the hash.
	Separator string
}

func pathHash(comps []string) string {
	sum := sha256.Sum256([]byte(strings.Join(comps, "/")))
	return hex.EncodeToString(sum[:])[:8]
}

func sanitizeLogicalId(s string) string {
	return aws.LogicalIdSanitizer.Apply(s)
}

// PhysicalName generates a name for a resource that is stable for a given construct path,
// so redeploying the same tree keeps the same physical resources. The name is the prefix,
// the path components (trimmed from the start when too long), and an 8 character hash of
// the path.
func PhysicalName(scope Scope, prefix string, opts NameOptions) string {
	node := scope.Node()
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = defaultMaxNameLength
	}
	sep := opts.Separator
	comps := node.Components()

	hash := pathHash(comps)
	if !opts.Lower {
		hash = strings.ToUpper(hash)
	}
	suffix := sep + hash

	var parts []string
	for _, c := range comps {
		var p string
		if opts.Lower && len(sep) == 1 {
			p = strcase.ToDelimited(nonAlphanumeric.ReplaceAllString(c, " "), sep[0])
			p = strings.Trim(p, sep)
		} else {
			p = nonAlphanumeric.ReplaceAllString(c, "")
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	body := strings.Join(parts, sep)

	var name string
	room := maxLength - len(prefix) - len(sep) - len(suffix)
	switch {
	case maxLength <= len(suffix):
		name = hash[:min(len(hash), maxLength)]
	case room <= 0 || body == "":
		head := prefix
		if len(head) > maxLength-len(suffix) {
			head = head[:maxLength-len(suffix)]
		}
		name = head + suffix
	default:
		if len(body) > room {
			body = body[len(body)-room:]
		}
		if sep != "" {
			body = strings.TrimLeft(body, sep)
		}
		switch {
		case body == "":
			name = prefix + suffix
		case prefix == "":
			name = body + suffix
		default:
			name = prefix + sep + body + suffix
		}
	}
	if opts.Lower {
		name = strings.ToLower(name)
	}
	zap.S().Debugf("Generated physical name %s for %s", name, node.Path())
	return name
}
