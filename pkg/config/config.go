package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klothoplatform/genai-constructs/pkg/construct"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	JSONOutput = "json"
	YAMLOutput = "yaml"

	DefaultOutDir = "cdk.out"
)

type (
	Application struct {
		AppName     string `json:"app" yaml:"app" toml:"app"`
		Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`

		// Format is what format the file was originally in.
		Format string `json:"-" yaml:"-" toml:"-"`

		OutDir       string `json:"out_dir,omitempty" yaml:"out_dir,omitempty" toml:"out_dir,omitempty"`
		OutputFormat string `json:"output_format,omitempty" yaml:"output_format,omitempty" toml:"output_format,omitempty"`

		Environment construct.Environment `json:"environment,omitempty" yaml:"environment,omitempty" toml:"environment,omitempty"`

		Defaults                Defaults                    `json:"defaults,omitempty" yaml:"defaults,omitempty" toml:"defaults,omitempty"`
		Indexes                 map[string]*GenAiIndex      `json:"indexes,omitempty" yaml:"indexes,omitempty" toml:"indexes,omitempty"`
		ImportedIndexes         map[string]*ImportedIndex   `json:"imported_indexes,omitempty" yaml:"imported_indexes,omitempty" toml:"imported_indexes,omitempty"`
		SupplementalDataStorage map[string]*StorageLocation `json:"supplemental_data_storage,omitempty" yaml:"supplemental_data_storage,omitempty" toml:"supplemental_data_storage,omitempty"`
	}

	Defaults struct {
		Index GenAiIndex `json:"index,omitempty" yaml:"index,omitempty" toml:"index,omitempty"`
	}

	GenAiIndex struct {
		Name                  string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
		KmsKeyArn             string `json:"kms_key_arn,omitempty" yaml:"kms_key_arn,omitempty" toml:"kms_key_arn,omitempty"`
		CreateKmsKey          bool   `json:"create_kms_key,omitempty" yaml:"create_kms_key,omitempty" toml:"create_kms_key,omitempty"`
		DocumentCapacityUnits *int   `json:"document_capacity_units,omitempty" yaml:"document_capacity_units,omitempty" toml:"document_capacity_units,omitempty"`
		QueryCapacityUnits    *int   `json:"query_capacity_units,omitempty" yaml:"query_capacity_units,omitempty" toml:"query_capacity_units,omitempty"`
	}

	ImportedIndex struct {
		IndexId string `json:"index_id" yaml:"index_id" toml:"index_id"`
		RoleArn string `json:"role_arn" yaml:"role_arn" toml:"role_arn"`
	}

	StorageLocation struct {
		Type string `json:"type" yaml:"type" toml:"type"`
		URI  string `json:"uri" yaml:"uri" toml:"uri"`
	}
)

func ReadConfig(fpath string) (Application, error) {
	var appCfg Application

	f, err := os.Open(fpath)
	if err != nil {
		return appCfg, err
	}
	defer f.Close() // nolint:errcheck

	switch filepath.Ext(fpath) {
	case ".json":
		err = json.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "json"

	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "yaml"

	case ".toml":
		err = toml.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "toml"

	default:
		err = fmt.Errorf("unsupported config file extension '%s'", filepath.Ext(fpath))
	}
	if err != nil {
		return appCfg, err
	}
	appCfg.ApplyDefaults()
	return appCfg, nil
}

// ApplyDefaults fills the output settings and merges Defaults.Index into every index.
func (a *Application) ApplyDefaults() {
	if a.OutDir == "" {
		a.OutDir = DefaultOutDir
	}
	if a.OutputFormat == "" {
		a.OutputFormat = JSONOutput
		if a.Format == "yaml" {
			a.OutputFormat = YAMLOutput
		}
	}
	for name, idx := range a.Indexes {
		merged := a.Defaults.Index
		merged.Name = ""
		if idx != nil {
			merged.Merge(*idx)
		}
		a.Indexes[name] = &merged
	}
}

func (cfg *GenAiIndex) Merge(other GenAiIndex) {
	if other.Name != "" {
		cfg.Name = other.Name
	}
	// Key settings replace the defaults as a pair, so an index that sets both keeps the
	// conflict for Validate.
	if other.KmsKeyArn != "" || other.CreateKmsKey {
		cfg.KmsKeyArn = other.KmsKeyArn
		cfg.CreateKmsKey = other.CreateKmsKey
	}
	if other.DocumentCapacityUnits != nil {
		cfg.DocumentCapacityUnits = other.DocumentCapacityUnits
	}
	if other.QueryCapacityUnits != nil {
		cfg.QueryCapacityUnits = other.QueryCapacityUnits
	}
}

func (a Application) Validate() error {
	var err error
	if a.AppName == "" {
		err = errors.Join(err, errors.New("app name is required"))
	}
	switch a.OutputFormat {
	case JSONOutput, YAMLOutput:
	default:
		err = errors.Join(err, fmt.Errorf("unsupported output format '%s'", a.OutputFormat))
	}
	for _, name := range SortedKeys(a.Indexes) {
		idx := a.Indexes[name]
		if idx == nil {
			continue
		}
		if idx.KmsKeyArn != "" && idx.CreateKmsKey {
			err = errors.Join(err, fmt.Errorf("index %s: kms_key_arn and create_kms_key are mutually exclusive", name))
		}
		if _, ok := a.ImportedIndexes[name]; ok {
			err = errors.Join(err, fmt.Errorf("index %s is both created and imported", name))
		}
	}
	for _, name := range SortedKeys(a.ImportedIndexes) {
		imp := a.ImportedIndexes[name]
		if imp == nil || imp.IndexId == "" || imp.RoleArn == "" {
			err = errors.Join(err, fmt.Errorf("imported index %s: index_id and role_arn are required", name))
		}
	}
	for _, name := range SortedKeys(a.SupplementalDataStorage) {
		if loc := a.SupplementalDataStorage[name]; loc == nil || loc.URI == "" {
			err = errors.Join(err, fmt.Errorf("supplemental data storage %s: uri is required", name))
		}
	}
	if len(a.Indexes) == 0 && len(a.ImportedIndexes) == 0 && len(a.SupplementalDataStorage) == 0 {
		zap.S().Warnf("Application %s defines no indexes or storage locations", a.AppName)
	}
	return err
}

// SortedKeys returns the keys of m in order, so config maps produce the same construct
// tree on every run.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
