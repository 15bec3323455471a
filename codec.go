package deepflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petrijr/deepflow/internal/loader"
)

// MarshalJSON encodes the serialized record of the flow.
func (f *Flow) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Serialize())
}

// DecodeFlowJSON decodes a JSON record, as produced by MarshalJSON or sent
// by a flow service, into a Flow. The graph is not validated.
func DecodeFlowJSON(data []byte) (*Flow, error) {
	rec, err := loader.Parse(data, loader.FormatJSON, "")
	if err != nil {
		return nil, err
	}
	return Deserialize(rec)
}

// LoadFile reads a flow document (.json, .yaml, .yml or .hcl).
func LoadFile(ctx context.Context, path string) (*Flow, error) {
	rec, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	f, err := Deserialize(rec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Save stores the serialized flow, replacing any record with the same id.
func Save(ctx context.Context, store FlowStore, f *Flow) error {
	return store.SaveFlow(ctx, f.Serialize())
}

// Load rebuilds a stored flow.
func Load(ctx context.Context, store FlowStore, id string) (*Flow, error) {
	rec, err := store.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	return Deserialize(rec)
}
