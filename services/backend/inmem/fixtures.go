package inmembackend

import (
	"context"
	"fmt"
	"time"

	"github.com/academia/portal/core/query"
	"github.com/academia/portal/core/statusflow"
)

var courseTitles = []string{
	"Java Fundamentals", "Advanced Java", "Go in Practice", "Intro to SQL", "Data Structures",
	"JavaScript Basics", "Web APIs", "Linear Algebra", "Statistics 101", "Machine Learning",
	"Network Basics", "Operating Systems", "Compilers", "Distributed Systems", "Security Basics",
	"Cloud Foundations", "Technical Writing", "Project Management", "UX Design", "Mobile Apps",
	"Java Streams", "Testing Strategies", "Functional Programming",
}

// NewWithFixtures returns a Backend seeded with demo data for org 1, workspace 1.
func NewWithFixtures() *Backend {
	b := New()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, title := range courseTitles {
		b.Seed("Course", query.Record{
			"courseId":    i + 1,
			"courseTitle": title,
			"orgId":       1,
			"isPublished": i%3 != 0,
			"createdAt":   start.Add(time.Duration(i) * 24 * time.Hour).Format(time.RFC3339),
		})
	}
	for i := 0; i < 12; i++ {
		b.Seed("Record", query.Record{
			"recordId":    i + 1,
			"recordTitle": fmt.Sprintf("Ticket #%d", i+1),
			"orgId":       1,
			"workspaceId": 1,
			"statusId":    1 + i%3,
			"updatedAt":   start.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		})
	}
	for i, name := range []string{"Support", "Admissions", "Library"} {
		b.Seed("Workspace", query.Record{"workspaceId": i + 1, "workspaceName": name, "orgId": 1})
	}

	_ = b.SaveFlow(context.Background(), statusflow.Flow{
		Meta: statusflow.Meta{Name: "Support", Description: "Support tickets", Status: "ACTIVE"},
		Statuses: []statusflow.Status{
			{Name: "OPEN", Color: "#3366ff"},
			{Name: "IN_PROGRESS", Color: "#ff9900"},
			{Name: "DONE", Color: "#33aa33"},
		},
		Transitions: []statusflow.FlowTransition{
			{From: "OPEN", To: "IN_PROGRESS"},
			{From: "IN_PROGRESS", To: "DONE"},
			{From: "DONE", To: "OPEN"},
		},
	}.Document(statusflow.Scope{OrgID: 1, WorkspaceID: 1, StatusConfigurationID: 1}))
	return b
}
