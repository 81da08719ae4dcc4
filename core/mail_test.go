package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flowData struct {
	Name                  string
	WorkspaceID           int
	StatusConfigurationID int
	UpdatedBy             string
	Statuses              int
	Transitions           int
	Diff                  string
}

func TestEmailMessage_Render(t *testing.T) {
	t.Run("plain body", func(t *testing.T) {
		m := &EmailMessage{To: []mail.Address{{Address: "a@test.cd"}}, BodyStr: "hello"}
		require.NoError(t, m.Render("Academia"))
		assert.Equal(t, "hello", m.TextContent)
		assert.Empty(t, m.HTMLContent)
		assert.True(t, m.HasContent())
	})

	t.Run("template", func(t *testing.T) {
		m := &EmailMessage{
			To:           []mail.Address{{Address: "a@test.cd"}},
			TemplateName: "flow_updated",
			TemplateData: flowData{Name: "Support", WorkspaceID: 1, StatusConfigurationID: 2, UpdatedBy: "admin", Statuses: 3, Transitions: 2, Diff: "+status <B>"},
		}
		require.NoError(t, m.Render("Academia"))
		assert.Contains(t, m.TextContent, `The status flow "Support" of workspace 1 (configuration 2) was updated by admin.`)
		assert.Contains(t, m.TextContent, "+status <B>")
		assert.Contains(t, m.TextContent, "Academia")
		assert.Contains(t, m.HTMLContent, "<strong>Support</strong>")
		assert.Contains(t, m.HTMLContent, "+status &lt;B&gt;", "html content is escaped")
	})

	t.Run("unknown template", func(t *testing.T) {
		m := &EmailMessage{TemplateName: "nope"}
		assert.EqualError(t, m.Render("Academia"), `unknown email template "nope"`)
	})
}

func TestParseAddressList(t *testing.T) {
	addrs, err := ParseAddressList("a@test.cd, Bob <b@test.cd>")
	require.NoError(t, err)
	assert.Equal(t, []mail.Address{{Address: "a@test.cd"}, {Name: "Bob", Address: "b@test.cd"}}, addrs)

	addrs, err = ParseAddressList("  ")
	assert.NoError(t, err)
	assert.Nil(t, addrs)

	_, err = ParseAddressList("not an address")
	assert.Error(t, err)
}
