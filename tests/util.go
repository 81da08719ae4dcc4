package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
	"github.com/academia/portal/core/savedview"
	"github.com/academia/portal/core/statusflow"
	"github.com/academia/portal/storage/database"
)

// NewConfig returns a TEST configuration backed by an in-memory sqlite database.
func NewConfig() *core.Config {
	return &core.Config{
		Env:      "TEST",
		Debug:    true,
		TestMode: true,
		AppName:  "Academia",
		Auth: core.AuthConfig{
			SecretKey: "test-secret",
			Issuer:    "Academia",
			Audience:  "Academia",
		},
		Backend: core.BackendConfig{InMemory: true},
		Email:   core.EmailConfig{FromName: "Academia", FromAddress: "no-reply@test.cd"},
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Path:   ":memory:",
		},
		Views: core.ViewConfig{
			DefaultLimit:     10,
			MaxLimit:         100,
			MaxPerOwner:      4,
			MaxFlowsPerOwner: 2,
		},
	}
}

// PrepareDB opens a migrated in-memory database closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(NewConfig())
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom validation registered, and its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	query.InitValidators(validate, translator)
	statusflow.InitValidators(validate, translator)
	return validate, translator
}

func Session(userID string, orgID, workspaceID int) core.Session {
	return core.Session{UserID: userID, Username: "user" + userID, OrgID: orgID, WorkspaceID: workspaceID, Token: "tok-" + userID}
}

func CreateSavedView(t *testing.T, repo savedview.Repository, sess core.Session, name, endpoint string, d query.Descriptor) savedview.SavedView {
	t.Helper()
	validate, _ := NewValidator()
	svc := savedview.NewService(repo, validate, NewConfig())
	sv, err := svc.Create(context.Background(), sess, savedview.NewSavedView{Name: name, Endpoint: endpoint, Descriptor: d})
	if err != nil {
		t.Fatalf("CreateSavedView() failed: %v", err)
	}
	return sv
}
