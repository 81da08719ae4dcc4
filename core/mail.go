package core

import (
	"bytes"
	"context"
	"embed"
	htmltmpl "html/template"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

//go:embed templates/email/*
var emailTemplates embed.FS

var (
	templates tmplCache
	tmplErr   error
	tmplInit  sync.Once
)

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]tmplCacheEntry // by template name

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName string
		Data    interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages renders and sends messages, returning the first failure.
		SendMessages(ctx context.Context, messages ...*EmailMessage) error
	}
)

// ParseAddressList parses "a@x.cd, Bob <b@y.cd>".
func ParseAddressList(list string) ([]mail.Address, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	addrs, err := mail.ParseAddressList(list)
	if err != nil {
		return nil, errors.Wrap(err, "parsing addresses")
	}
	out := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, *a)
	}
	return out, nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// Render fills TextContent and HTMLContent from BodyStr or the message template.
func (m *EmailMessage) Render(appName string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	tmplInit.Do(parseTemplates)
	if tmplErr != nil {
		return tmplErr
	}
	entry, ok := templates[m.TemplateName]
	if !ok {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}

	data := ContextData{AppName: appName, Data: m.TemplateData}
	if entry.text != nil && m.BodyStr == "" {
		var buff bytes.Buffer
		if err := entry.text.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering "+m.TemplateName+".txt")
		}
		m.TextContent = buff.String()
	}
	if entry.html != nil {
		var buff bytes.Buffer
		if err := entry.html.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering "+m.TemplateName+".gohtml")
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func parseTemplates() {
	templates = make(tmplCache)

	root := "templates/email"
	files, err := emailTemplates.ReadDir(root)
	if err != nil {
		tmplErr = errors.Wrap(err, "reading email templates")
		return
	}

	for _, f := range files {
		fname := f.Name()
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry := templates[name]
		if ext == ".txt" {
			entry.text, err = texttmpl.ParseFS(emailTemplates, path.Join(root, "_base.txt"), path.Join(root, fname))
			if err == nil {
				entry.text = entry.text.Option("missingkey=error")
			}
		} else {
			entry.html, err = htmltmpl.ParseFS(emailTemplates, path.Join(root, "_base.gohtml"), path.Join(root, fname))
			if err == nil {
				entry.html = entry.html.Option("missingkey=error")
			}
		}
		if err != nil {
			tmplErr = errors.Wrap(err, "parsing email template "+fname)
			return
		}
		templates[name] = entry
	}
}
