package loader

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/petrijr/deepflow/pkg/api"
)

// hclFile is the top-level structure of a flow document.
type hclFile struct {
	Flows []*hclFlow `hcl:"flow,block"`
}

type hclFlow struct {
	ID        string         `hcl:"id,label"`
	Intent    string         `hcl:"intent"`
	Metadata  *cty.Value     `hcl:"metadata,optional"`
	Resources []*hclResource `hcl:"resource,block"`
	Steps     []*hclStep     `hcl:"step,block"`
}

type hclResource struct {
	ID       string `hcl:"id,label"`
	Type     string `hcl:"type,optional"`
	Provider string `hcl:"provider,optional"`
}

type hclStep struct {
	ID        string   `hcl:"id,label"`
	DependsOn []string `hcl:"depends_on,optional"`
	Resource  string   `hcl:"resource"`
	Query     string   `hcl:"query,optional"`
	Output    string   `hcl:"output,optional"`
}

func parseHCL(data []byte, filename string) (api.FlowRecord, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return api.FlowRecord{}, &api.MalformedError{Msg: "hcl flow document", Err: diags}
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return api.FlowRecord{}, &api.MalformedError{Msg: "hcl flow document", Err: diags}
	}
	if len(parsed.Flows) != 1 {
		return api.FlowRecord{}, &api.MalformedError{Msg: fmt.Sprintf("expected exactly one flow block, found %d", len(parsed.Flows))}
	}
	f := parsed.Flows[0]

	rec := api.FlowRecord{
		ID:        f.ID,
		Intent:    f.Intent,
		Metadata:  map[string]api.Value{},
		Resources: make([]api.Resource, 0, len(f.Resources)),
		Steps:     make([]api.Step, 0, len(f.Steps)),
	}
	if f.Metadata != nil && !f.Metadata.IsNull() {
		md, err := ctyToValue(*f.Metadata)
		if err != nil {
			return api.FlowRecord{}, &api.MalformedError{Field: "metadata", Err: err}
		}
		m, ok := md.AsMap()
		if !ok {
			return api.FlowRecord{}, &api.MalformedError{Field: "metadata", Msg: "must be an object"}
		}
		rec.Metadata = m
	}
	for _, r := range f.Resources {
		rec.Resources = append(rec.Resources, api.Resource{ID: r.ID, Type: r.Type, Provider: r.Provider})
	}
	for _, s := range f.Steps {
		rec.Steps = append(rec.Steps, api.Step{
			ID:           s.ID,
			Dependencies: s.DependsOn,
			Action:       api.Action{Resource: s.Resource, Query: s.Query, Output: s.Output},
		})
	}
	return rec, nil
}

// ctyToValue converts an HCL value into an api.Value. Whole numbers become
// ints, other numbers floats.
func ctyToValue(v cty.Value) (api.Value, error) {
	if v.IsNull() {
		return api.Null(), nil
	}
	if !v.IsKnown() {
		return api.Value{}, fmt.Errorf("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return api.String(v.AsString()), nil

	case ty == cty.Bool:
		return api.Bool(v.True()), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return api.Int(i), nil
			}
		}
		f, _ := bf.Float64()
		return api.Float(f), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		items := make([]api.Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			item, err := ctyToValue(ev)
			if err != nil {
				return api.Value{}, err
			}
			items = append(items, item)
		}
		return api.List(items...), nil

	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]api.Value, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			item, err := ctyToValue(ev)
			if err != nil {
				return api.Value{}, fmt.Errorf("in attribute %q: %w", k.AsString(), err)
			}
			m[k.AsString()] = item
		}
		return api.Map(m), nil
	}
	return api.Value{}, fmt.Errorf("unsupported HCL type %s", ty.FriendlyName())
}
