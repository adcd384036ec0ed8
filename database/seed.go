package database

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// LoadSeed reads the first-run boards from the YAML file at path, or from
// the built-in seed when path is empty.
func LoadSeed(path string) ([]*BoardData, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
		data = b
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML list of boards.
func ParseSeed(data []byte) ([]*BoardData, error) {
	var boards []*BoardData
	if err := yaml.Unmarshal(data, &boards); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if len(boards) == 0 {
		return nil, fmt.Errorf("seed contains no boards")
	}
	return boards, nil
}
