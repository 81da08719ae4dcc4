package statusflow

import (
	"net/mail"

	"github.com/academia/portal/core"
)

const updateTemplate = "flow_updated"

// UpdateNotice is the content of the email announcing a saved flow.
type UpdateNotice struct {
	Name                  string
	WorkspaceID           int
	StatusConfigurationID int
	UpdatedBy             string
	Statuses              int
	Transitions           int
	Diff                  string
}

func NewUpdateNotice(doc Document, updatedBy, diff string) UpdateNotice {
	return UpdateNotice{
		Name:                  doc.StatusConfigurationName,
		WorkspaceID:           doc.WorkspaceID,
		StatusConfigurationID: doc.StatusConfigurationID,
		UpdatedBy:             updatedBy,
		Statuses:              len(doc.PossibleStatus),
		Transitions:           len(doc.PossibleStatusTransition),
		Diff:                  diff,
	}
}

func (n UpdateNotice) Message(to []mail.Address) *core.EmailMessage {
	return &core.EmailMessage{
		To:           to,
		Subject:      "Status flow updated: " + n.Name,
		TemplateName: updateTemplate,
		TemplateData: n,
	}
}
