package manifest

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// Encode serializes m back to manifest TOML. Placeholders resolved by Parse
// stay resolved in the output.
func Encode(m *Manifest) ([]byte, error) {
	doc := document{
		Info: &infoDocument{
			Name:        ptr(m.Info.Name),
			Version:     ptr(m.Info.Version),
			Description: ptr(m.Info.Description),
			License:     ptr(m.Info.License.String()),
		},
		Dependencies: m.Dependencies,
		Directories:  m.Directories,
	}

	for _, src := range m.Sources {
		doc.Sources = append(doc.Sources, sourceDocument{
			URL:      ptr(src.URL),
			Checksum: ptr(src.Checksum),
		})
	}

	for _, step := range m.Steps {
		encoded := stepDocument{Name: ptr(step.Name)}

		switch v := step.Variant.(type) {
		case CommandStep:
			encoded.Runner = ptr(v.Runner.String())
			encoded.Command = ptr(v.Command)
		case MoveStep:
			encoded.Path = ptr(v.Path)
		default:
			return nil, fmt.Errorf("encode step %q: %w", step.Name, errStepShape)
		}

		doc.Steps = append(doc.Steps, encoded)
	}

	data, err := toml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	return data, nil
}

func ptr[T any](v T) *T {
	return &v
}
