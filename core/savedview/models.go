package savedview

import (
	"context"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
)

// SavedView is a named base descriptor a screen can be mounted from.
type SavedView struct {
	ID          string           `json:"id"`
	OrgID       int              `json:"orgId"`
	WorkspaceID int              `json:"workspaceId"`
	Name        string           `json:"name"`
	Endpoint    string           `json:"endpoint"`
	Descriptor  query.Descriptor `json:"descriptor"`
	Description null.String      `json:"description"`
	CreatedAt   time.Time        `json:"createdAt"` // UTC
	UpdatedAt   time.Time        `json:"updatedAt"` // UTC
}

// NewSavedView contains information needed to create a SavedView.
type NewSavedView struct {
	Name        string           `json:"name" validate:"required,notblank,max=120"`
	Endpoint    string           `json:"endpoint" validate:"required,startswith=/,max=120"`
	Descriptor  query.Descriptor `json:"descriptor"`
	Description *string          `json:"description"`
}

// Validate cleans nsv, validates it and checks the name is free in the session's workspace.
func (nsv *NewSavedView) Validate(ctx context.Context, svc *Service, sess core.Session) error {
	nsv.Name = core.CleanString(nsv.Name)
	nsv.Endpoint = strings.TrimSpace(nsv.Endpoint)
	if nsv.Description != nil {
		desc := strings.TrimSpace(*nsv.Description)
		nsv.Description = &desc
	}

	if err := query.Validate(svc.validate, &nsv.Descriptor, svc.maxLimit); err != nil {
		return err
	}
	if err := svc.validate.Struct(nsv); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ctx, sess, nsv.Name)
}

type QueryFilter struct {
	OrgID       int
	WorkspaceID int
	Search      string `query:"search"`   // case-insensitive match on Name
	Endpoint    string `query:"endpoint"` // exact match
}
