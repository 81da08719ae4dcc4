package query

import (
	"sort"

	"github.com/academia/portal/core"
)

// Preset is the baseline descriptor of a screen, built once when the screen is mounted.
type Preset struct {
	Name     string
	Endpoint string
	Build    func(s core.Session, limit int) Descriptor
}

var presets = map[string]Preset{
	"courses": {
		Name:     "courses",
		Endpoint: "/searchCourse",
		Build: func(_ core.Session, limit int) Descriptor {
			d := New("Course", limit,
				Include("CourseCategory", "category", false),
				Include("CourseInstructor", "instructors", false),
			)
			d.GetThisData.Order = []Order{Descending("createdAt")}
			return d
		},
	},
	"records": {
		Name:     "records",
		Endpoint: "/searchRecord",
		Build: func(s core.Session, limit int) Descriptor {
			d := New("Record", limit,
				Include("Statuses", "status", false),
				Include("RecordAssignee", "assignees", false,
					Include("User", "user", false),
				),
				Include("RecordCustomField", "customFields", false),
			)
			d.GetThisData.Where["orgId"] = s.OrgID
			d.GetThisData.Where["workspaceId"] = s.WorkspaceID
			d.GetThisData.Order = []Order{Descending("updatedAt")}
			return d
		},
	},
	"workspaces": {
		Name:     "workspaces",
		Endpoint: "/searchWorkspace",
		Build: func(s core.Session, limit int) Descriptor {
			d := New("Workspace", limit, Include("WorkspaceMember", "members", false))
			d.GetThisData.Where["orgId"] = s.OrgID
			d.GetThisData.Order = []Order{Ascending("workspaceName")}
			return d
		},
	},
}

func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
