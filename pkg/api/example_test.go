// example_test.go
package api_test

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petrijr/deepflow/pkg/api"
)

// ExampleResourceRouter shows how to dispatch actions to a runner per
// resource, with a fallback for everything else.
func ExampleResourceRouter() {
	sql := api.RunnerFunc(func(ctx context.Context, a api.Action) (api.StepOutput, error) {
		return api.List(api.Int(1), api.Int(2)), nil
	})

	router := api.ResourceRouter{
		Routes:   map[string]api.StepRunner{"db": sql},
		Fallback: api.EchoRunner,
	}

	out, _ := router.Invoke(context.Background(), api.Action{Resource: "db", Query: "SELECT n"})
	fmt.Println(out)

	out, _ = router.Invoke(context.Background(), api.Action{Resource: "llm", Query: "summarize", Output: "report"})
	fmt.Println(out)
	// Output:
	// [1,2]
	// {"output":"report","query":"summarize","resourceId":"llm"}
}

// ExampleValue shows that integers and floats keep their kind through JSON.
func ExampleValue() {
	var md map[string]api.Value
	_ = json.Unmarshal([]byte(`{"count": 1, "ratio": 1.0}`), &md)

	fmt.Println(md["count"].Kind(), md["ratio"].Kind())

	out, _ := json.Marshal(md)
	fmt.Println(string(out))
	// Output:
	// int float
	// {"count":1,"ratio":1.0}
}
