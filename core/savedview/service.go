package savedview

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
)

var (
	// errors
	ErrNotFound   = errors.New("saved view not found")
	ErrNameExists = errors.New("a saved view with this name already exists in the workspace")
)

type (
	Repository interface {
		// CheckNameUniqueness returns ErrNameExists when name is taken in the workspace.
		CheckNameUniqueness(ctx context.Context, orgID, workspaceID int, name string) error
		// CreateSavedView returns ErrNameExists when the name was taken concurrently.
		CreateSavedView(ctx context.Context, sv SavedView) (SavedView, error)
		QuerySavedViews(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]SavedView, error)
		GetSavedView(ctx context.Context, orgID, workspaceID int, id string) (SavedView, error)
		DeleteSavedView(ctx context.Context, orgID, workspaceID int, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		maxLimit int
	}
)

// Orderings accepted by Query.
var OrderingFields = []string{"name", "created_at", "updated_at"}

func NewService(repo Repository, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{repo: repo, validate: validate, maxLimit: conf.Views.MaxLimit}
}

func (svc *Service) CheckNameUniqueness(ctx context.Context, sess core.Session, name string) error {
	err := svc.repo.CheckNameUniqueness(ctx, sess.OrgID, sess.WorkspaceID, name)
	return nameError(err)
}

func nameError(err error) error {
	if errors.Cause(err) == ErrNameExists {
		return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	}
	return err
}

// Create stores nsv in the session's workspace. nsv must have been validated.
func (svc *Service) Create(ctx context.Context, sess core.Session, nsv NewSavedView) (SavedView, error) {
	now := time.Now().UTC()
	sv := SavedView{
		ID:          uuid.New().String(),
		OrgID:       sess.OrgID,
		WorkspaceID: sess.WorkspaceID,
		Name:        nsv.Name,
		Endpoint:    nsv.Endpoint,
		Descriptor:  query.Clone(nsv.Descriptor),
		Description: null.StringFromPtr(nsv.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sv, err := svc.repo.CreateSavedView(ctx, sv)
	if err != nil {
		return SavedView{}, nameError(err)
	}
	return sv, nil
}

// Query lists the saved views of the session's workspace, by name unless ordering says otherwise.
func (svc *Service) Query(ctx context.Context, sess core.Session, filter QueryFilter, ordering []core.DBOrdering) ([]SavedView, error) {
	filter.OrgID = sess.OrgID
	filter.WorkspaceID = sess.WorkspaceID
	filter.Search = core.CleanString(filter.Search)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.QuerySavedViews(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, sess core.Session, id string) (SavedView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return SavedView{}, ErrNotFound
	}
	return svc.repo.GetSavedView(ctx, sess.OrgID, sess.WorkspaceID, id)
}

func (svc *Service) Delete(ctx context.Context, sess core.Session, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return svc.repo.DeleteSavedView(ctx, sess.OrgID, sess.WorkspaceID, id)
}
