package statusflow

import (
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/pkg/errors"
)

type (
	flowFile struct {
		Name        string               `hcl:"name"`
		Description string               `hcl:"description,optional"`
		State       string               `hcl:"state,optional"`
		Statuses    []flowFileStatus     `hcl:"status,block"`
		Transitions []flowFileTransition `hcl:"transition,block"`
	}

	flowFileStatus struct {
		Name  string `hcl:"name,label"`
		Color string `hcl:"color,optional"`
	}

	flowFileTransition struct {
		From string `hcl:"from"`
		To   string `hcl:"to"`
	}
)

const defaultFlowState = "ACTIVE"

// ParseFlowFile reads a status flow from an HCL file.
//
//	name  = "Support"
//	state = "ACTIVE"
//	status "OPEN" { color = "#3366ff" }
//	status "DONE" {}
//	transition {
//	  from = "OPEN"
//	  to   = "DONE"
//	}
func ParseFlowFile(path string) (Flow, error) {
	var ff flowFile
	if err := hclsimple.DecodeFile(path, nil, &ff); err != nil {
		return Flow{}, errors.Wrap(err, "decoding flow file")
	}
	return ff.flow(), nil
}

// ParseFlow is ParseFlowFile on in-memory source; filename only names diagnostics and must end in ".hcl".
func ParseFlow(filename string, src []byte) (Flow, error) {
	var ff flowFile
	if err := hclsimple.Decode(filename, src, nil, &ff); err != nil {
		return Flow{}, errors.Wrap(err, "decoding flow file")
	}
	return ff.flow(), nil
}

func (ff flowFile) flow() Flow {
	f := Flow{
		Meta:        Meta{Name: ff.Name, Description: ff.Description, Status: ff.State},
		Statuses:    make([]Status, 0, len(ff.Statuses)),
		Transitions: make([]FlowTransition, 0, len(ff.Transitions)),
	}
	if f.Meta.Status == "" {
		f.Meta.Status = defaultFlowState
	}
	for _, s := range ff.Statuses {
		f.Statuses = append(f.Statuses, Status{Name: s.Name, Color: s.Color})
	}
	for _, tr := range ff.Transitions {
		f.Transitions = append(f.Transitions, FlowTransition{From: tr.From, To: tr.To})
	}
	return f
}
