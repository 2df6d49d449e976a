package dag

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/plugin"
	"github.com/kbukum/kindflow/record"
	"github.com/kbukum/kindflow/validation"
)

// RecordsName is the output holding raw digitizer records.
const RecordsName = "records"

// RecordsSchema is the layout of raw records.
var RecordsSchema = record.MustSchema(
	record.F(record.FieldTime, record.Int64),
	record.F(record.FieldLength, record.Int64),
	record.F(record.FieldDt, record.Int64),
	record.F("channel", record.Int64),
	record.F("pulse_length", record.Int64),
	record.F("record_i", record.Int64),
	record.F("baseline", record.Float64),
)

// DefaultSources returns the placeholders every graph can depend on.
func DefaultSources() []plugin.Plugin {
	return []plugin.Plugin{
		plugin.NewPlaceholder(RecordsName, record.DataKind(RecordsName), RecordsSchema),
	}
}

// SourceDef declares an output supplied from outside the graph.
type SourceDef struct {
	// Provides is the output name.
	Provides string `yaml:"provides" validate:"required,identifier"`
	// Kind is the data kind, defaulting to Provides.
	Kind string `yaml:"data_kind,omitempty" validate:"omitempty,identifier"`
	// Fields is the record layout.
	Fields []FieldDef `yaml:"fields" validate:"required,min=1,dive"`
}

// FieldDef declares one schema field.
type FieldDef struct {
	Name string `yaml:"name" validate:"required,identifier"`
	Type string `yaml:"type" validate:"required,oneof=int64 float64 string bool"`
}

type sourceFile struct {
	Sources []SourceDef `yaml:"sources" validate:"dive"`
}

// Placeholder builds the placeholder plugin for the declaration.
func (d SourceDef) Placeholder() (*plugin.Placeholder, error) {
	fields := make([]record.Field, len(d.Fields))
	for i, f := range d.Fields {
		t, err := parseFieldType(f.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = record.F(f.Name, t)
	}
	schema, err := record.NewSchema(fields...)
	if err != nil {
		return nil, err
	}
	kind := d.Kind
	if kind == "" {
		kind = d.Provides
	}
	return plugin.NewPlaceholder(d.Provides, record.DataKind(kind), schema), nil
}

// LoadSources reads placeholder declarations from a YAML file:
//
//	sources:
//	  - provides: hits
//	    data_kind: hits
//	    fields:
//	      - {name: time, type: int64}
//	      - {name: area, type: float64}
func LoadSources(path string) ([]plugin.Plugin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Configuration("reading sources %s", path).WithCause(err)
	}
	sources, err := ParseSources(data)
	if err != nil {
		return nil, fmt.Errorf("dag: %s: %w", path, err)
	}
	return sources, nil
}

// ParseSources decodes placeholder declarations from YAML.
func ParseSources(data []byte) ([]plugin.Plugin, error) {
	var f sourceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Configuration("parsing source declarations").WithCause(err)
	}
	if err := validation.ValidateStruct(f); err != nil {
		return nil, err
	}
	out := make([]plugin.Plugin, 0, len(f.Sources))
	for _, def := range f.Sources {
		p, err := def.Placeholder()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func parseFieldType(s string) (record.FieldType, error) {
	switch s {
	case "int64":
		return record.Int64, nil
	case "float64":
		return record.Float64, nil
	case "string":
		return record.String, nil
	case "bool":
		return record.Bool, nil
	default:
		return 0, errors.InvalidInput("type", fmt.Sprintf("unknown field type %q", s))
	}
}
