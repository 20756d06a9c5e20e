package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom/internal/mail/models"
)

var footer = Footer{SentAt: "2025-06-01 10:00 UTC", Device: "Firefox 121 on Linux (desktop)"}

func TestContact(t *testing.T) {
	text, err := Contact(&models.ContactSubmission{
		Name:    "Ana Silva",
		Email:   "ana@example.com",
		Message: "Is the X5 still available?",
		Attachments: []models.Attachment{
			{Filename: "licence.pdf", ContentType: "application/pdf"},
		},
	}, footer)

	require.NoError(t, err)
	assert.Contains(t, text, "Name:    Ana Silva")
	assert.Contains(t, text, "Is the X5 still available?")
	assert.Contains(t, text, "- licence.pdf (application/pdf)")
	assert.Contains(t, text, "Firefox 121 on Linux (desktop)")
	assert.NotContains(t, text, "Phone:")
}

func TestTradeIn(t *testing.T) {
	urls := []string{
		"https://cdn.example.com/trade-in/1-aa.jpg",
		"https://cdn.example.com/trade-in/2-bb.png",
	}
	text, html, err := TradeIn(&models.TradeInSubmission{
		Name:    "Ana",
		Email:   "ana@example.com",
		Message: "Offer <please>",
		Brand:   "VW",
		Model:   "Golf",
		Year:    2017,
		Mileage: 84000,
	}, urls, footer)

	require.NoError(t, err)
	for _, u := range urls {
		assert.Contains(t, text, u)
		assert.Contains(t, html, `<img src="`+u+`"`)
	}
	assert.Contains(t, text, "Mileage: 84000 km")
	assert.Contains(t, html, "VW Golf")
	assert.Contains(t, html, "Offer &lt;please&gt;")
	assert.NotContains(t, html, "Offer <please>")
}
