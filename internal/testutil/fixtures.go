package testutil

import "github.com/petrijr/deepflow/pkg/api"

// SampleRecord returns a small diamond-shaped flow record with metadata of
// every value kind, suitable for store round trips.
func SampleRecord(id string) api.FlowRecord {
	return api.FlowRecord{
		ID:     id,
		Intent: "summarize quarterly sales",
		Metadata: map[string]api.Value{
			"owner":    api.String("analytics"),
			"priority": api.Int(3),
			"ratio":    api.Float(1.0),
			"draft":    api.Bool(false),
			"tags":     api.List(api.String("sales"), api.Null()),
			"limits":   api.Map(map[string]api.Value{"rows": api.Int(1000)}),
		},
		Resources: []api.Resource{
			{ID: "db", Type: "postgres", Provider: "aws"},
			{ID: "llm", Type: "model", Provider: "local"},
		},
		Steps: []api.Step{
			{ID: "load", Dependencies: []string{}, Action: api.Action{Resource: "db", Query: "SELECT * FROM sales", Output: "rows"}},
			{ID: "clean", Dependencies: []string{"load"}, Action: api.Action{Resource: "db", Query: "DELETE FROM tmp", Output: "cleaned"}},
			{ID: "stats", Dependencies: []string{"load"}, Action: api.Action{Resource: "db", Query: "SELECT sum(total) FROM sales", Output: "stats"}},
			{ID: "report", Dependencies: []string{"clean", "stats"}, Action: api.Action{Resource: "llm", Query: "summarize", Output: "report"}},
		},
	}
}
