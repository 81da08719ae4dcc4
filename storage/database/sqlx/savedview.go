package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/savedview"
)

const savedViewColumns = "id, org_id, workspace_id, name, endpoint, descriptor, description, created_at, updated_at"

type savedViewRow struct {
	ID          string      `db:"id"`
	OrgID       int         `db:"org_id"`
	WorkspaceID int         `db:"workspace_id"`
	Name        string      `db:"name"`
	Endpoint    string      `db:"endpoint"`
	Descriptor  string      `db:"descriptor"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

type savedViewRepository struct {
	db *sqlx.DB
}

var _ savedview.Repository = (*savedViewRepository)(nil) // interface compliance check

func NewSavedViewRepository(db *sqlx.DB) *savedViewRepository {
	return &savedViewRepository{db: db}
}

func (repo savedViewRepository) toRow(sv savedview.SavedView) (savedViewRow, error) {
	desc, err := sonic.MarshalString(sv.Descriptor)
	if err != nil {
		return savedViewRow{}, errors.Wrap(err, "encoding descriptor")
	}
	return savedViewRow{
		ID:          sv.ID,
		OrgID:       sv.OrgID,
		WorkspaceID: sv.WorkspaceID,
		Name:        sv.Name,
		Endpoint:    sv.Endpoint,
		Descriptor:  desc,
		Description: sv.Description,
		CreatedAt:   sv.CreatedAt.UTC(),
		UpdatedAt:   sv.UpdatedAt.UTC(),
	}, nil
}

func (repo savedViewRepository) fromRow(row savedViewRow) (savedview.SavedView, error) {
	sv := savedview.SavedView{
		ID:          row.ID,
		OrgID:       row.OrgID,
		WorkspaceID: row.WorkspaceID,
		Name:        row.Name,
		Endpoint:    row.Endpoint,
		Description: row.Description,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if err := sonic.UnmarshalString(row.Descriptor, &sv.Descriptor); err != nil {
		return savedview.SavedView{}, errors.Wrapf(err, "decoding descriptor of saved view %s", row.ID)
	}
	return sv, nil
}

// trapNoRowsErr maps "no rows" err to savedview.ErrNotFound
func (repo savedViewRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return savedview.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports a unique index violation on either supported engine.
func isUniqueViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == "23505"
	case sqlite3.Error:
		return e.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func (repo savedViewRepository) CheckNameUniqueness(ctx context.Context, orgID, workspaceID int, name string) error {
	var count int
	q := repo.db.Rebind(`SELECT COUNT(*) FROM saved_view WHERE org_id = ? AND workspace_id = ? AND name = ?`)
	if err := repo.db.GetContext(ctx, &count, q, orgID, workspaceID, name); err != nil {
		return errors.Wrap(err, "checking saved view name uniqueness")
	}
	if count > 0 {
		return savedview.ErrNameExists
	}
	return nil
}

func (repo savedViewRepository) CreateSavedView(ctx context.Context, sv savedview.SavedView) (savedview.SavedView, error) {
	row, err := repo.toRow(sv)
	if err != nil {
		return savedview.SavedView{}, err
	}
	q := `INSERT INTO saved_view (` + savedViewColumns + `)
		VALUES (:id, :org_id, :workspace_id, :name, :endpoint, :descriptor, :description, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return savedview.SavedView{}, savedview.ErrNameExists
		}
		return savedview.SavedView{}, errors.Wrap(err, "inserting saved view")
	}
	return repo.fromRow(row)
}

func (repo savedViewRepository) QuerySavedViews(ctx context.Context, filter savedview.QueryFilter, ordering []core.DBOrdering) ([]savedview.SavedView, error) {
	conds := []string{"org_id = ?", "workspace_id = ?"}
	args := []interface{}{filter.OrgID, filter.WorkspaceID}
	if filter.Search != "" {
		conds = append(conds, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Endpoint != "" {
		conds = append(conds, "endpoint = ?")
		args = append(args, filter.Endpoint)
	}

	q := `SELECT ` + savedViewColumns + ` FROM saved_view WHERE ` + strings.Join(conds, " AND ")
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []savedViewRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying saved views")
	}
	views := make([]savedview.SavedView, 0, len(rows))
	for _, row := range rows {
		sv, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		views = append(views, sv)
	}
	return views, nil
}

func (repo savedViewRepository) GetSavedView(ctx context.Context, orgID, workspaceID int, id string) (savedview.SavedView, error) {
	var row savedViewRow
	q := repo.db.Rebind(`SELECT ` + savedViewColumns + ` FROM saved_view WHERE id = ? AND org_id = ? AND workspace_id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id, orgID, workspaceID); err != nil {
		return savedview.SavedView{}, repo.trapNoRowsErr(err, "finding saved view")
	}
	return repo.fromRow(row)
}

func (repo savedViewRepository) DeleteSavedView(ctx context.Context, orgID, workspaceID int, id string) error {
	q := repo.db.Rebind(`DELETE FROM saved_view WHERE id = ? AND org_id = ? AND workspace_id = ?`)
	res, err := repo.db.ExecContext(ctx, q, id, orgID, workspaceID)
	if err != nil {
		return errors.Wrap(err, "deleting saved view")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting saved view")
	}
	if cnt == 0 {
		return savedview.ErrNotFound
	}
	return nil
}
