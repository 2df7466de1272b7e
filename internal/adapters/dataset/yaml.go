package dataset

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlDocument struct {
	Events []record `yaml:"events"`
}

func parseYAML(r io.Reader) ([]record, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return doc.Events, nil
}
