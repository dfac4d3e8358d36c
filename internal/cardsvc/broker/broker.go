package broker

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/scanbridge/card-services/internal/cardsvc/models"
)

const (
	SubjectCardCreated = "card.created"
	SubjectCardDeleted = "card.deleted"
)

// CardEvent carries identifiers only; image payloads stay off the bus.
type CardEvent struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
}

// Broker publishes card lifecycle events to NATS. It is optional: a nil
// broker (no NATS configured) makes every publish a no-op, and publish
// failures are logged rather than failing the request.
type Broker struct {
	Conn *nats.Conn
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc}
}

func (b *Broker) PublishCardCreated(card *models.Card) {
	b.publish(SubjectCardCreated, CardEvent{ID: card.ID, OwnerID: card.OwnerID})
}

func (b *Broker) PublishCardDeleted(id, ownerID string) {
	b.publish(SubjectCardDeleted, CardEvent{ID: id, OwnerID: ownerID})
}

func (b *Broker) publish(subject string, event CardEvent) {
	if b == nil || b.Conn == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Error encoding %s event %s", subject, err)
		return
	}
	if err := b.Conn.Publish(subject, data); err != nil {
		log.Errorf("Error publishing %s event %s", subject, err)
	}
}
