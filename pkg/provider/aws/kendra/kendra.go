package kendra

const (
	IndexType = "AWS::Kendra::Index"

	// ServicePrincipal is the principal Kendra uses to assume index roles.
	ServicePrincipal = "kendra.amazonaws.com"
	// MetricsNamespace is the CloudWatch namespace Kendra publishes index metrics to.
	MetricsNamespace = "AWS/Kendra"
	// LogGroupPrefix is the path under which Kendra creates index log groups.
	LogGroupPrefix = "/aws/kendra/"
)

// Edition is the edition of a Kendra index.
type Edition string

const (
	DeveloperEdition       Edition = "DEVELOPER_EDITION"
	EnterpriseEdition      Edition = "ENTERPRISE_EDITION"
	GenAiEnterpriseEdition Edition = "GEN_AI_ENTERPRISE_EDITION"
)

// IndexFieldType is the type of a custom document attribute.
type IndexFieldType string

const (
	StringField     IndexFieldType = "STRING_VALUE"
	StringListField IndexFieldType = "STRING_LIST_VALUE"
	LongField       IndexFieldType = "LONG_VALUE"
	DateField       IndexFieldType = "DATE_VALUE"
)

// UserContextPolicy controls how search results are filtered on user context.
type UserContextPolicy string

const (
	// AttributeFilter makes all indexed content searchable for all users. Results can be
	// filtered with the _user_id and _group_ids attributes or a UserContext.
	AttributeFilter UserContextPolicy = "ATTRIBUTE_FILTER"
	// UserToken filters results with token based user access control.
	UserToken UserContextPolicy = "USER_TOKEN"
)
