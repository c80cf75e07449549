package bedrock

import (
	"errors"
	"fmt"
	"net/url"

	awssanitizer "github.com/klothoplatform/genai-constructs/pkg/sanitization/aws"
)

// SupplementalDataStorageLocationType identifies where images extracted from multimodal
// documents are stored.
type SupplementalDataStorageLocationType string

const (
	// S3 stores extracted images in an Amazon S3 location.
	S3 SupplementalDataStorageLocationType = "S3"
)

var ErrUnsupportedLocationType = errors.New("unsupported storage location type")

type (
	SupplementalDataStorageS3Config struct {
		// URI is the S3 URI of the storage location, e.g. s3://bucket/prefix.
		URI string `json:"uri" yaml:"uri" toml:"uri"`
	}

	// SupplementalDataStorageLocation is a storage location for images extracted from
	// multimodal documents in a knowledge base data source. Values are immutable; build them
	// with one of the factory functions such as [NewS3Location].
	SupplementalDataStorageLocation struct {
		locationType SupplementalDataStorageLocationType
		s3           SupplementalDataStorageS3Config
	}

	// SupplementalDataStorageLocationProperty is the rendered
	// AWS::Bedrock::KnowledgeBase SupplementalDataStorageLocation.
	SupplementalDataStorageLocationProperty struct {
		SupplementalDataStorageLocationType SupplementalDataStorageLocationType `json:"SupplementalDataStorageLocationType"`
		S3Location                          *S3LocationProperty                 `json:"S3Location,omitempty"`
	}

	S3LocationProperty struct {
		URI string `json:"URI"`
	}

	// SupplementalDataStorageConfigurationProperty is the rendered
	// AWS::Bedrock::KnowledgeBase SupplementalDataStorageConfiguration.
	SupplementalDataStorageConfigurationProperty struct {
		SupplementalDataStorageLocations []SupplementalDataStorageLocationProperty `json:"SupplementalDataStorageLocations"`
	}
)

// NewS3Location creates a supplemental data storage location in Amazon S3.
func NewS3Location(config SupplementalDataStorageS3Config) SupplementalDataStorageLocation {
	return SupplementalDataStorageLocation{locationType: S3, s3: config}
}

func (l SupplementalDataStorageLocation) Type() SupplementalDataStorageLocationType {
	return l.locationType
}

// S3Config returns the S3 configuration and whether the location is an S3 location.
func (l SupplementalDataStorageLocation) S3Config() (SupplementalDataStorageS3Config, bool) {
	return l.s3, l.locationType == S3
}

// Render converts the location into its CloudFormation property shape.
func (l SupplementalDataStorageLocation) Render() (SupplementalDataStorageLocationProperty, error) {
	switch l.locationType {
	case S3:
		return SupplementalDataStorageLocationProperty{
			SupplementalDataStorageLocationType: l.locationType,
			S3Location:                          &S3LocationProperty{URI: l.s3.URI},
		}, nil
	default:
		return SupplementalDataStorageLocationProperty{}, fmt.Errorf("%w: %q", ErrUnsupportedLocationType, l.locationType)
	}
}

// Validate checks the location's configuration against what the knowledge base accepts.
func (l SupplementalDataStorageLocation) Validate() error {
	switch l.locationType {
	case S3:
		return l.s3.Validate()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedLocationType, l.locationType)
	}
}

func (c SupplementalDataStorageS3Config) Validate() error {
	u, err := url.Parse(c.URI)
	if err != nil {
		return fmt.Errorf("invalid S3 URI '%s': %w", c.URI, err)
	}
	if u.Scheme != "s3" {
		return fmt.Errorf("invalid S3 URI '%s': scheme must be s3", c.URI)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid S3 URI '%s': missing bucket", c.URI)
	}
	if len(u.Host) < 3 || !awssanitizer.S3BucketNameSanitizer.Valid(u.Host) {
		return fmt.Errorf("invalid S3 URI '%s': '%s' is not a valid bucket name", c.URI, u.Host)
	}
	return nil
}

// RenderConfiguration renders the storage configuration block that lists every location.
func RenderConfiguration(locations ...SupplementalDataStorageLocation) (SupplementalDataStorageConfigurationProperty, error) {
	if len(locations) == 0 {
		return SupplementalDataStorageConfigurationProperty{}, errors.New("at least one supplemental data storage location is required")
	}
	rendered := make([]SupplementalDataStorageLocationProperty, 0, len(locations))
	for i, l := range locations {
		p, err := l.Render()
		if err != nil {
			return SupplementalDataStorageConfigurationProperty{}, fmt.Errorf("location %d: %w", i, err)
		}
		rendered = append(rendered, p)
	}
	return SupplementalDataStorageConfigurationProperty{SupplementalDataStorageLocations: rendered}, nil
}
