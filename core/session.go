package core

import (
	"context"
	"strconv"
)

// Session is the caller context needed by the query and status-flow modules:
// who is asking, on behalf of which org/workspace, and the token to forward to the backend.
type Session struct {
	UserID      string
	Username    string
	Email       string
	OrgID       int
	WorkspaceID int
	Token       string
}

// Owner identifies the owner of screen state (views, flow editors).
func (s Session) Owner() string {
	return s.UserID + "@" + strconv.Itoa(s.OrgID)
}

func (s Session) IsZero() bool {
	return s.UserID == "" && s.OrgID == 0 && s.WorkspaceID == 0 && s.Token == ""
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the Session stored in ctx, if any.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
