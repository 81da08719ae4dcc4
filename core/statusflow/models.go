package statusflow

import (
	"github.com/pkg/errors"
)

var (
	ErrStatusExists    = errors.New("a status with this name already exists")
	ErrStatusNotFound  = errors.New("status not found")
	ErrEdgeNotFound    = errors.New("transition not found")
	ErrSaveInProgress  = errors.New("a save is already in progress")
	ErrLoadInProgress  = errors.New("the flow is loading")
	ErrEmptyStatusName = errors.New("status name is required")
)

type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateDirty   State = "dirty"
	StateSaving  State = "saving"
	StateFailed  State = "failed"
)

type (
	// Scope addresses one status configuration (workflow) of a workspace.
	Scope struct {
		OrgID                 int `json:"orgId"`
		WorkspaceID           int `json:"workspaceId"`
		StatusConfigurationID int `json:"statusConfigurationId"`
	}

	// Meta describes the status configuration being edited.
	Meta struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}

	Status struct {
		ID    int    `json:"statusId,omitempty"`
		Name  string `json:"statusName" validate:"required,notblank"`
		Color string `json:"statusColor"`
	}

	// Transition is a directed edge between two statuses, by name.
	// ID is shared with the rendered Edge. Dangling marks an endpoint that could not be resolved on load.
	Transition struct {
		ID       string `json:"id"`
		From     string `json:"fromStatus"`
		To       string `json:"toStatus"`
		Dangling bool   `json:"dangling,omitempty"`
	}

	// RemoteTransition is a transition as stored by the backend, by status ID.
	RemoteTransition struct {
		ID         int `json:"statusesTransitionId,omitempty"`
		FromStatus int `json:"fromStatus"`
		ToStatus   int `json:"toStatus"`
	}

	// FlowTransition is a transition in the save payload.
	FlowTransition struct {
		From string `json:"fromStatus" validate:"required"`
		To   string `json:"toStatus" validate:"required"`
	}

	// Document is the full-replace payload persisting a status flow.
	Document struct {
		WorkspaceID                    int              `json:"workspaceId"`
		OrgID                          int              `json:"orgId"`
		StatusConfigurationID          int              `json:"statusConfigurationId"`
		StatusConfigurationStatus      string           `json:"statusConfigurationStatus"`
		StatusConfigurationName        string           `json:"statusConfigurationName" validate:"required,notblank"`
		StatusConfigurationDescription string           `json:"statusConfigurationDescription"`
		PossibleStatus                 []Status         `json:"possibleStatus" validate:"dive"`
		PossibleStatusTransition       []FlowTransition `json:"possibleStatusTransition" validate:"dive"`
	}

	// Flow is a status flow independent of any scope (eg. read from a file).
	Flow struct {
		Meta        Meta
		Statuses    []Status
		Transitions []FlowTransition
	}

	Position struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	Node struct {
		ID       string   `json:"id"` // the status name
		Label    string   `json:"label"`
		Color    string   `json:"color"`
		Position Position `json:"position"`
	}

	Edge struct {
		ID        string `json:"id"` // the transition ID
		Source    string `json:"source"`
		Target    string `json:"target"`
		Color     string `json:"color"`
		MarkerEnd string `json:"markerEnd"`
	}

	Graph struct {
		Nodes []Node `json:"nodes"`
		Edges []Edge `json:"edges"`
	}

	// Snapshot is a copy of the editor state.
	Snapshot struct {
		Scope       Scope        `json:"scope"`
		Meta        Meta         `json:"meta"`
		State       State        `json:"state"`
		Dirty       bool         `json:"dirty"`
		Statuses    []Status     `json:"statuses"`
		Transitions []Transition `json:"transitions"`
		Graph       Graph        `json:"graph"`
		LastError   string       `json:"lastError,omitempty"`
	}
)

// Document builds the save payload of f for scope.
func (f Flow) Document(scope Scope) Document {
	return Document{
		WorkspaceID:                    scope.WorkspaceID,
		OrgID:                          scope.OrgID,
		StatusConfigurationID:          scope.StatusConfigurationID,
		StatusConfigurationStatus:      f.Meta.Status,
		StatusConfigurationName:        f.Meta.Name,
		StatusConfigurationDescription: f.Meta.Description,
		PossibleStatus:                 append(make([]Status, 0, len(f.Statuses)), f.Statuses...),
		PossibleStatusTransition:       append(make([]FlowTransition, 0, len(f.Transitions)), f.Transitions...),
	}
}
