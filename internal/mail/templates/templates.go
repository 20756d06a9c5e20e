// Package templates renders the bodies of relayed emails.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"showroom/internal/mail/models"
)

//go:embed *.tmpl
var files embed.FS

var (
	contactText = texttemplate.Must(texttemplate.ParseFS(files, "contact.txt.tmpl"))
	tradeInText = texttemplate.Must(texttemplate.ParseFS(files, "tradein.txt.tmpl"))
	tradeInHTML = htmltemplate.Must(htmltemplate.ParseFS(files, "tradein.html.tmpl"))
)

// Footer is appended to every body.
type Footer struct {
	SentAt string
	Device string
}

type contactData struct {
	*models.ContactSubmission
	Footer
}

type tradeInData struct {
	*models.TradeInSubmission
	Footer
	ImageURLs []string
}

// Contact renders the plain-text body of a contact request.
func Contact(sub *models.ContactSubmission, footer Footer) (string, error) {
	var buf bytes.Buffer
	if err := contactText.Execute(&buf, contactData{sub, footer}); err != nil {
		return "", fmt.Errorf("render contact text: %w", err)
	}
	return buf.String(), nil
}

// TradeIn renders the plain-text and HTML bodies. Both list every image URL;
// the HTML body embeds them as previews.
func TradeIn(sub *models.TradeInSubmission, imageURLs []string, footer Footer) (text, html string, err error) {
	data := tradeInData{TradeInSubmission: sub, Footer: footer, ImageURLs: imageURLs}

	var textBuf, htmlBuf bytes.Buffer
	if err := tradeInText.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("render trade-in text: %w", err)
	}
	if err := tradeInHTML.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("render trade-in html: %w", err)
	}
	return textBuf.String(), htmlBuf.String(), nil
}
