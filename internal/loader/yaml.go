package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/petrijr/deepflow/pkg/api"
)

// yamlDocument mirrors api.FlowRecord with metadata left as plain YAML
// data, converted to values afterwards.
type yamlDocument struct {
	ID        string         `yaml:"id"`
	Intent    string         `yaml:"intent"`
	Metadata  map[string]any `yaml:"metadata"`
	Resources []api.Resource `yaml:"resources"`
	Steps     []api.Step     `yaml:"steps"`
}

func parseYAML(data []byte) (api.FlowRecord, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc yamlDocument
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return api.FlowRecord{}, &api.MalformedError{Msg: "empty yaml flow document"}
		}
		return api.FlowRecord{}, &api.MalformedError{Msg: "yaml flow document", Err: err}
	}

	rec := api.FlowRecord{
		ID:        doc.ID,
		Intent:    doc.Intent,
		Metadata:  make(map[string]api.Value, len(doc.Metadata)),
		Resources: doc.Resources,
		Steps:     doc.Steps,
	}
	for k, raw := range doc.Metadata {
		v, err := api.FromAny(raw)
		if err != nil {
			return api.FlowRecord{}, &api.MalformedError{Field: "metadata." + k, Err: err}
		}
		rec.Metadata[k] = v
	}
	return rec, nil
}

// MarshalYAML renders rec as a YAML flow document.
func MarshalYAML(rec api.FlowRecord) ([]byte, error) {
	doc := yamlDocument{
		ID:        rec.ID,
		Intent:    rec.Intent,
		Resources: rec.Resources,
		Steps:     rec.Steps,
	}
	if len(rec.Metadata) > 0 {
		doc.Metadata = make(map[string]any, len(rec.Metadata))
		for k, v := range rec.Metadata {
			doc.Metadata[k] = v.Any()
		}
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml flow %q: %w", rec.ID, err)
	}
	return out, nil
}
