// Package whatsapp validates scanned phone numbers and builds wa.me deep
// links with a templated, pre-filled message.
package whatsapp

import (
	"errors"
	"net/url"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone number format")

// LinkConfig holds the card fields substituted into the message template.
// Placeholders {name}, {title}, {company} and {website} are replaced
// globally; missing fields become empty strings.
type LinkConfig struct {
	Name            string
	Title           string
	Company         string
	Email           string
	Website         string
	MessageTemplate string
}

// DefaultLinkConfig is used when the scanner has no stored card to share.
var DefaultLinkConfig = LinkConfig{
	Name:            "Alex Rivera",
	Title:           "Senior Solutions Architect",
	Company:         "ScanBridge Tech",
	Email:           "alex@scanbridge.io",
	Website:         "https://scanbridge.io",
	MessageTemplate: "Hi! I just scanned your QR code at the event. Here is my digital business card:\n\n*Name:* {name}\n*Title:* {title}\n*Company:* {company}\n*Website:* {website}\n\nLet's connect!",
}

func digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Sanitize strips everything but digits, preserving a leading '+'.
func Sanitize(phone string) string {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "+") {
		return "+" + digits(trimmed)
	}
	return digits(trimmed)
}

// IsValid reports whether the number has between 8 and 15 digits, the
// leading '+' excluded.
func IsValid(phone string) bool {
	n := len(digits(phone))
	return n >= 8 && n <= 15
}

var countryPrefixes = []struct {
	prefix string
	label  string
}{
	{"54", "Argentina"},
	{"52", "México"},
	{"34", "España"},
	{"1", "EE.UU. / Canadá"},
	{"55", "Brasil"},
	{"57", "Colombia"},
	{"51", "Perú"},
	{"56", "Chile"},
}

// CountryHint guesses the country from the international calling prefix.
// Best effort only, a national number without its prefix will mismatch.
func CountryHint(phone string) string {
	clean := digits(phone)
	if clean == "" {
		return "Desconocido"
	}
	for _, c := range countryPrefixes {
		if strings.HasPrefix(clean, c.prefix) {
			return c.label
		}
	}
	return "Internacional"
}

// BuildMessageLink returns a wa.me URL opening a chat with the given
// number and the expanded message template pre-filled. If the URL cannot
// be composed the phone-only link is returned instead of an error, so a
// scan still opens the chat.
func BuildMessageLink(phone string, cfg LinkConfig) (string, error) {
	clean := digits(phone)
	if !IsValid(clean) {
		return "", ErrInvalidPhone
	}

	message := cfg.MessageTemplate
	message = strings.ReplaceAll(message, "{name}", cfg.Name)
	message = strings.ReplaceAll(message, "{title}", cfg.Title)
	message = strings.ReplaceAll(message, "{company}", cfg.Company)
	message = strings.ReplaceAll(message, "{website}", cfg.Website)

	link, err := url.Parse("https://wa.me/" + clean)
	if err != nil {
		return "https://wa.me/" + clean, nil
	}
	// spaces as %20, not '+', matching what chat apps expect in text params
	link.RawQuery = "text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return link.String(), nil
}
