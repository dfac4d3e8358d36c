package whatsapp

import (
	"net/url"
	"strings"
)

type ScanKind int

const (
	ScanUnknown ScanKind = iota
	ScanCardURL
	ScanPhone
)

// ParseScanPayload classifies a decoded QR payload. A card share URL
// (http…/card/<id>) yields ScanCardURL with the card id; anything that
// sanitizes to a valid phone number yields ScanPhone with the digits.
func ParseScanPayload(text string) (ScanKind, string) {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "http") && strings.Contains(lower, "/card/") {
		if u, err := url.Parse(strings.TrimSpace(text)); err == nil {
			var parts []string
			for _, p := range strings.Split(u.Path, "/") {
				if p != "" {
					parts = append(parts, p)
				}
			}
			if len(parts) >= 2 && parts[0] == "card" {
				return ScanCardURL, parts[1]
			}
		}
	}

	if clean := Sanitize(text); IsValid(clean) {
		return ScanPhone, digits(clean)
	}
	return ScanUnknown, ""
}

// ShareURL builds the shareable link for a card, <origin>/card/<id>.
func ShareURL(origin, id string) string {
	return strings.TrimSuffix(origin, "/") + "/card/" + id
}
