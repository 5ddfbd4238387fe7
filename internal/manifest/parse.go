package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/tailwags/blossom/internal/variables"
)

const (
	// DefaultStagingDir is the staging directory name, relative to the working directory.
	DefaultStagingDir = "package"

	// VarVersion expands to info.version.
	VarVersion = "version"

	// VarPkgDir expands to the absolute staging directory.
	VarPkgDir = "pkgdir"
)

var (
	errMissingField = errors.New("required field is missing")
	errEmptyField   = errors.New("field must not be empty")
	errStepShape    = errors.New("step must set either runner and command, or path")
)

// document mirrors the TOML layout. Pointers distinguish absent fields from empty ones.
type document struct {
	Info         *infoDocument     `toml:"info"`
	Dependencies *Dependencies     `toml:"dependencies,omitempty"`
	Sources      []sourceDocument  `toml:"sources,omitempty"`
	Steps        []stepDocument    `toml:"steps,omitempty"`
	Directories  map[string]string `toml:"directories,omitempty"`
}

type infoDocument struct {
	Name        *string `toml:"name"`
	Version     *string `toml:"version"`
	Description *string `toml:"description"`
	License     *string `toml:"license"`
}

type sourceDocument struct {
	URL      *string `toml:"url"`
	Checksum *string `toml:"checksum"`
}

type stepDocument struct {
	Name    *string `toml:"name"`
	Runner  *string `toml:"runner,omitempty"`
	Command *string `toml:"command,omitempty"`
	Path    *string `toml:"path,omitempty"`
}

// options configure Parse and Load.
type options struct {
	stagingDir string
	engine     *variables.Engine
}

// Option customizes manifest parsing.
type Option func(*options)

// WithStagingDir sets the directory %{pkgdir} expands to. Relative paths are
// resolved against the current working directory.
func WithStagingDir(dir string) Option {
	return func(o *options) {
		o.stagingDir = dir
	}
}

// WithEngine substitutes placeholders with the given engine instead of variables.Default().
func WithEngine(engine *variables.Engine) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// Load reads the manifest at path and parses it.
func Load(path string, opts ...Option) (*Manifest, error) {
	text, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(text, opts...)
}

// Parse decodes manifest text, validates it and resolves its placeholders.
func Parse(text []byte, opts ...Option) (*Manifest, error) {
	o := &options{
		stagingDir: DefaultStagingDir,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.engine == nil {
		o.engine = variables.Default()
	}

	var doc document
	if err := toml.Unmarshal(text, &doc); err != nil {
		return nil, &FormatError{Err: err}
	}

	m, err := doc.toManifest()
	if err != nil {
		return nil, err
	}

	stagingDir, err := filepath.Abs(o.stagingDir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging directory: %w", err)
	}

	vars := Variables(m.Info.Version, stagingDir)
	if err = m.substitute(o.engine, vars); err != nil {
		return nil, err
	}

	return m, nil
}

// Variables builds the table available to manifest placeholders.
func Variables(version, stagingDir string) variables.Table {
	return variables.Table{
		VarVersion: version,
		VarPkgDir:  stagingDir,
	}
}

// toManifest validates required fields and converts the wire layout to the model.
func (d *document) toManifest() (*Manifest, error) {
	info, err := d.Info.toInfo()
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Info:         info,
		Dependencies: d.Dependencies,
		Sources:      make([]Source, 0, len(d.Sources)),
		Steps:        make([]Step, 0, len(d.Steps)),
		Directories:  make(map[string]string, len(d.Directories)),
	}

	for i, src := range d.Sources {
		field := fmt.Sprintf("sources[%d]", i)

		url, err := required(src.URL, field+".url")
		if err != nil {
			return nil, err
		}

		checksum, err := required(src.Checksum, field+".checksum")
		if err != nil {
			return nil, err
		}

		m.Sources = append(m.Sources, Source{URL: url, Checksum: checksum})
	}

	for i, step := range d.Steps {
		converted, err := step.toStep(fmt.Sprintf("steps[%d]", i))
		if err != nil {
			return nil, err
		}

		m.Steps = append(m.Steps, converted)
	}

	for name, path := range d.Directories {
		m.Directories[name] = path
	}

	return m, nil
}

func (d *infoDocument) toInfo() (Info, error) {
	if d == nil {
		return Info{}, &FormatError{Field: "info", Err: errMissingField}
	}

	name, err := required(d.Name, "info.name")
	if err != nil {
		return Info{}, err
	}

	version, err := required(d.Version, "info.version")
	if err != nil {
		return Info{}, err
	}

	description, err := required(d.Description, "info.description")
	if err != nil {
		return Info{}, err
	}

	if d.License == nil {
		return Info{}, &FormatError{Field: "info.license", Err: errMissingField}
	}

	if name == "" {
		return Info{}, &FormatError{Field: "info.name", Err: errEmptyField}
	}

	if version == "" {
		return Info{}, &FormatError{Field: "info.version", Err: errEmptyField}
	}

	license, err := ParseLicense(*d.License)
	if err != nil {
		return Info{}, err
	}

	return Info{
		Name:        name,
		Version:     version,
		Description: description,
		License:     license,
	}, nil
}

// toStep infers the variant from which fields are present.
func (d *stepDocument) toStep(field string) (Step, error) {
	name, err := required(d.Name, field+".name")
	if err != nil {
		return Step{}, err
	}

	isCommand := d.Runner != nil && d.Command != nil
	isMove := d.Path != nil

	switch {
	case isCommand && !isMove:
		runner, err := ParseRunnerKind(*d.Runner)
		if err != nil {
			return Step{}, &FormatError{Field: field + ".runner", Err: err}
		}

		return Step{Name: name, Variant: CommandStep{Runner: runner, Command: *d.Command}}, nil
	case isMove && d.Runner == nil && d.Command == nil:
		return Step{Name: name, Variant: MoveStep{Path: *d.Path}}, nil
	default:
		return Step{}, &FormatError{Field: field, Err: errStepShape}
	}
}

// substitute resolves placeholders in every variable-bearing field in place.
func (m *Manifest) substitute(engine *variables.Engine, vars variables.Table) error {
	for i := range m.Sources {
		url, err := substituteField(engine, m.Sources[i].URL, vars, fmt.Sprintf("sources[%d].url", i))
		if err != nil {
			return err
		}

		m.Sources[i].URL = url
	}

	for i := range m.Steps {
		switch v := m.Steps[i].Variant.(type) {
		case CommandStep:
			command, err := substituteField(engine, v.Command, vars, fmt.Sprintf("steps[%d].command", i))
			if err != nil {
				return err
			}

			v.Command = command
			m.Steps[i].Variant = v
		case MoveStep:
			path, err := substituteField(engine, v.Path, vars, fmt.Sprintf("steps[%d].path", i))
			if err != nil {
				return err
			}

			v.Path = path
			m.Steps[i].Variant = v
		}
	}

	return nil
}

func substituteField(engine *variables.Engine, value string, vars variables.Table, field string) (string, error) {
	resolved, err := engine.Substitute(value, vars)
	if err == nil {
		return resolved, nil
	}

	var varErr *variables.Error
	if errors.As(err, &varErr) {
		return "", &VariableError{Field: field, Err: varErr, Missing: engine.Missing(value, vars)}
	}

	return "", fmt.Errorf("substitute %s: %w", field, err)
}

func required(value *string, field string) (string, error) {
	if value == nil {
		return "", &FormatError{Field: field, Err: errMissingField}
	}

	return *value, nil
}
