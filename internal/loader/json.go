package loader

import (
	"encoding/json"

	"github.com/petrijr/deepflow/pkg/api"
)

func parseJSON(data []byte) (api.FlowRecord, error) {
	var rec api.FlowRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return api.FlowRecord{}, &api.MalformedError{Msg: "json flow document", Err: err}
	}
	return rec, nil
}
