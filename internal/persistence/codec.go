package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/petrijr/deepflow/pkg/api"
)

// EncodeRecord serializes rec to the JSON document every backend stores.
// Metadata values keep their kind, so 1.0 stays a float after a round trip.
func EncodeRecord(rec api.FlowRecord) ([]byte, error) {
	data, err := json.Marshal(rec.Clone())
	if err != nil {
		return nil, fmt.Errorf("encode flow %q: %w", rec.ID, err)
	}
	return data, nil
}

// DecodeRecord parses a document produced by EncodeRecord. Nil collections
// in the document come back as empty ones.
func DecodeRecord(data []byte) (api.FlowRecord, error) {
	if len(data) == 0 {
		return api.FlowRecord{}, ErrFlowNotFound
	}
	var rec api.FlowRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return api.FlowRecord{}, &api.MalformedError{Msg: "stored flow record", Err: err}
	}
	return rec.Clone(), nil
}
