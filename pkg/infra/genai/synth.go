package genai

import (
	"fmt"

	"github.com/iancoleman/strcase"
	"github.com/klothoplatform/genai-constructs/pkg/cfn"
	"github.com/klothoplatform/genai-constructs/pkg/config"
	"github.com/klothoplatform/genai-constructs/pkg/construct"
	"github.com/klothoplatform/genai-constructs/pkg/io"
	"github.com/klothoplatform/genai-constructs/pkg/provider/aws/bedrock"
	"github.com/klothoplatform/genai-constructs/pkg/provider/aws/iam"
	"github.com/klothoplatform/genai-constructs/pkg/provider/aws/kendra"
	"github.com/klothoplatform/genai-constructs/pkg/provider/aws/kms"
	awssanitizer "github.com/klothoplatform/genai-constructs/pkg/sanitization/aws"
	"go.uber.org/zap"
)

const (
	TemplateFileName                = "template"
	SupplementalDataStorageFileName = "supplemental_data_storage"
)

type Result struct {
	Stack    *construct.Stack
	Template *cfn.Template
	// Indexes holds every created or imported index, keyed by its config name.
	Indexes map[string]kendra.Index
	// SupplementalDataStorage is nil when the application defines no storage locations.
	SupplementalDataStorage *bedrock.SupplementalDataStorageConfigurationProperty
}

// Synth builds the stack described by the application config and synthesizes its template.
// Config maps are visited in key order so the same config always yields the same template.
func Synth(app config.Application) (*Result, error) {
	log := zap.S().Named("synth")

	stack, err := construct.NewStack(
		awssanitizer.StackNameSanitizer.Apply(app.AppName),
		app.Environment,
		app.Description,
	)
	if err != nil {
		return nil, err
	}
	res := &Result{Stack: stack, Indexes: make(map[string]kendra.Index)}

	for _, name := range config.SortedKeys(app.Indexes) {
		idx, err := createIndex(stack, name, app.Indexes[name])
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", name, err)
		}
		res.Indexes[name] = idx
		log.Debugf("Created index %s as %s", name, idx.Name())
	}

	for _, name := range config.SortedKeys(app.ImportedIndexes) {
		idx, err := importIndex(stack, name, app.ImportedIndexes[name])
		if err != nil {
			return nil, fmt.Errorf("imported index %s: %w", name, err)
		}
		res.Indexes[name] = idx
		log.Debugf("Imported index %s", name)
	}

	if err := addOutputs(stack, res.Indexes); err != nil {
		return nil, err
	}

	if len(app.SupplementalDataStorage) > 0 {
		storage, err := renderStorage(app.SupplementalDataStorage)
		if err != nil {
			return nil, err
		}
		res.SupplementalDataStorage = &storage
	}

	res.Template, err = stack.Synth()
	if err != nil {
		return nil, err
	}
	log.Infof("Synthesized %s: %d resources, %d indexes", stack.Name, len(res.Template.Resources), len(res.Indexes))
	return res, nil
}

func createIndex(stack *construct.Stack, name string, cfg *config.GenAiIndex) (*kendra.GenAiIndex, error) {
	props := kendra.GenAiIndexProps{
		Name:                  cfg.Name,
		DocumentCapacityUnits: cfg.DocumentCapacityUnits,
		QueryCapacityUnits:    cfg.QueryCapacityUnits,
	}
	switch {
	case cfg.CreateKmsKey:
		key, err := kms.NewKey(stack, name+"Key", kms.KeyProps{
			Description:       fmt.Sprintf("Server-side encryption key for Kendra index %s", name),
			EnableKeyRotation: true,
		})
		if err != nil {
			return nil, err
		}
		props.KmsKey = key

	case cfg.KmsKeyArn != "":
		key, err := kms.FromKeyArn(cfg.KmsKeyArn)
		if err != nil {
			return nil, err
		}
		props.KmsKey = key
	}
	return kendra.NewGenAiIndex(stack, name, props)
}

func importIndex(stack *construct.Stack, name string, cfg *config.ImportedIndex) (kendra.Index, error) {
	role, err := iam.FromRoleArn(cfg.RoleArn)
	if err != nil {
		return nil, err
	}
	return kendra.FromAttributes(stack, name, kendra.GenAiIndexAttributes{
		IndexId: cfg.IndexId,
		Role:    role,
	})
}

func addOutputs(stack *construct.Stack, indexes map[string]kendra.Index) error {
	for _, name := range config.SortedKeys(indexes) {
		idx := indexes[name]
		prefix := awssanitizer.LogicalIdSanitizer.Apply(strcase.ToCamel(name))
		outputs := map[string]*cfn.Output{
			prefix + "IndexId":  {Description: fmt.Sprintf("Id of Kendra index %s", name), Value: idx.IndexId()},
			prefix + "IndexArn": {Description: fmt.Sprintf("ARN of Kendra index %s", name), Value: idx.IndexArn()},
			prefix + "RoleArn":  {Description: fmt.Sprintf("ARN of the role used by Kendra index %s", name), Value: idx.Role().RoleArn()},
		}
		for _, outName := range config.SortedKeys(outputs) {
			if err := stack.AddOutput(outName, outputs[outName]); err != nil {
				return err
			}
		}
	}
	return nil
}

// StorageLocation converts a configured location to its value object.
func StorageLocation(cfg *config.StorageLocation) (bedrock.SupplementalDataStorageLocation, error) {
	switch bedrock.SupplementalDataStorageLocationType(cfg.Type) {
	case bedrock.S3, "":
		loc := bedrock.NewS3Location(bedrock.SupplementalDataStorageS3Config{URI: cfg.URI})
		return loc, loc.Validate()
	default:
		return bedrock.SupplementalDataStorageLocation{}, fmt.Errorf("%w: %q", bedrock.ErrUnsupportedLocationType, cfg.Type)
	}
}

func renderStorage(cfgs map[string]*config.StorageLocation) (bedrock.SupplementalDataStorageConfigurationProperty, error) {
	locations := make([]bedrock.SupplementalDataStorageLocation, 0, len(cfgs))
	for _, name := range config.SortedKeys(cfgs) {
		loc, err := StorageLocation(cfgs[name])
		if err != nil {
			return bedrock.SupplementalDataStorageConfigurationProperty{}, fmt.Errorf("supplemental data storage %s: %w", name, err)
		}
		locations = append(locations, loc)
	}
	return bedrock.RenderConfiguration(locations...)
}

// Files renders the synthesized template and storage configuration in the given format.
func (r *Result) Files(format string) ([]io.File, error) {
	var render func(any) ([]byte, error)
	switch format {
	case config.JSONOutput:
		render = cfn.ToJSON
	case config.YAMLOutput:
		render = cfn.ToYAML
	default:
		return nil, fmt.Errorf("unsupported output format '%s'", format)
	}

	content, err := render(r.Template)
	if err != nil {
		return nil, err
	}
	files := []io.File{&io.RawFile{FPath: TemplateFileName + "." + format, Content: content}}

	if r.SupplementalDataStorage != nil {
		content, err := render(r.SupplementalDataStorage)
		if err != nil {
			return nil, err
		}
		files = append(files, &io.RawFile{FPath: SupplementalDataStorageFileName + "." + format, Content: content})
	}
	return files, nil
}
