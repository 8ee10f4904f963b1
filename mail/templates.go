package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"path"
	"strings"
	texttmpl "text/template"
)

const (
	TemplateSchoolRegistered    = "school_registered"
	TemplateAccountCredentials  = "account_credentials"
	TemplatePasswordReset       = "password_reset"
	TemplateCredentialReviewed  = "credential_reviewed"
	TemplatePaymentReceipt      = "payment_receipt"
	TemplateSubscriptionExpired = "subscription_expired"
)

//go:embed all:templates
var templateFS embed.FS

type pair struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

// Templates renders the embedded email bodies. Each name has a .txt and a
// .gohtml file, both wrapped by the matching _base file.
type Templates struct {
	frontendURL string
	byName      map[string]pair
}

type contextData struct {
	FrontendURL string
	Data        interface{}
}

func LoadTemplates(frontendURL string) (*Templates, error) {
	files, err := fs.Glob(templateFS, "templates/*.txt")
	if err != nil {
		return nil, err
	}

	t := &Templates{frontendURL: strings.TrimRight(frontendURL, "/"), byName: map[string]pair{}}
	for _, f := range files {
		base := path.Base(f)
		if strings.HasPrefix(base, "_") {
			continue
		}
		name := strings.TrimSuffix(base, ".txt")

		text, err := texttmpl.New("_base.txt").Option("missingkey=error").
			ParseFS(templateFS, "templates/_base.txt", f)
		if err != nil {
			return nil, fmt.Errorf("mail: parse %s: %w", f, err)
		}
		html, err := htmltmpl.New("_base.gohtml").Option("missingkey=error").
			ParseFS(templateFS, "templates/_base.gohtml", "templates/"+name+".gohtml")
		if err != nil {
			return nil, fmt.Errorf("mail: parse %s.gohtml: %w", name, err)
		}
		t.byName[name] = pair{text: text, html: html}
	}
	return t, nil
}

func (t *Templates) Render(name, to, subject string, data interface{}) (*Message, error) {
	p, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("mail: unknown template %q", name)
	}
	if to == "" {
		return nil, ErrNoRecipient
	}

	cd := contextData{FrontendURL: t.frontendURL, Data: data}

	var text, html bytes.Buffer
	if err := p.text.Execute(&text, cd); err != nil {
		return nil, err
	}
	if err := p.html.Execute(&html, cd); err != nil {
		return nil, err
	}

	return &Message{To: to, Subject: subject, Text: text.String(), HTML: html.String()}, nil
}
