// Package device turns a submitter's User-Agent into a short description for
// the footer of relayed emails.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Info is the parsed view of a User-Agent.
type Info struct {
	Browser        string
	BrowserVersion string
	OS             string
	Mobile         bool
	Bot            bool
}

// Parse extracts browser, OS and form factor. Unknown parts stay empty.
func Parse(userAgent string) Info {
	if strings.TrimSpace(userAgent) == "" {
		return Info{}
	}
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()

	os := ua.OS()
	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			os = platform
		}
	}

	return Info{
		Browser:        strings.TrimSpace(browser),
		BrowserVersion: majorVersion(version),
		OS:             strings.TrimSpace(os),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
}

// Describe renders "Browser 120 on OS (mobile|desktop)", or "Unknown device".
func Describe(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "Unknown device"
	}
	info := Parse(userAgent)

	browser := info.Browser
	if browser == "" {
		browser = "Unknown browser"
	} else if info.BrowserVersion != "" {
		browser += " " + info.BrowserVersion
	}
	os := info.OS
	if os == "" {
		os = "unknown OS"
	}
	form := "desktop"
	switch {
	case info.Bot:
		form = "bot"
	case info.Mobile:
		form = "mobile"
	}
	return browser + " on " + os + " (" + form + ")"
}

func majorVersion(version string) string {
	major, _, _ := strings.Cut(version, ".")
	return strings.TrimSpace(major)
}
