package models

// Card is a digital business card. ImageData carries the encoded image
// payload as text; CreatedAt is milliseconds since epoch so clients can
// sort without parsing timestamps.
type Card struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	ImageData string `json:"imageData"`
	OwnerID   string `json:"ownerId"`
	CreatedAt int64  `json:"createdAt"`
}
