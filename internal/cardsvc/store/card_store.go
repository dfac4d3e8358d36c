package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/scanbridge/card-services/internal/cardsvc/models"
	"github.com/scanbridge/card-services/internal/kv"
)

const keyPrefix = "card:"

// collisionProbes is how many times a freshly generated id is probed
// against the namespace before giving up on probing.
const collisionProbes = 5

const (
	defaultName    = "Sin nombre"
	defaultCompany = "Empresa"
)

// CardStore persists cards in a metadata-tagged key-value namespace.
// Each card lives under card:<id> with {ownerId} attached as key metadata,
// so owner-scoped operations scan the whole namespace and filter on
// metadata instead of hitting an index.
type CardStore struct {
	kv            kv.Store
	imageMaxBytes int
	ownerQuota    int
	listLimit     int
	now           func() time.Time
}

func NewCardStore(s kv.Store, imageMaxBytes, ownerQuota int) *CardStore {
	return &CardStore{
		kv:            s,
		imageMaxBytes: imageMaxBytes,
		ownerQuota:    ownerQuota,
		listLimit:     kv.DefaultListLimit,
		now:           time.Now,
	}
}

func cardKey(id string) string {
	return keyPrefix + id
}

// Create validates, enforces the per-owner quota, generates a unique id
// and persists the card. The quota check and the write are not atomic:
// two concurrent creates near the limit can both pass the count, which is
// an accepted race for this workload.
func (s *CardStore) Create(ctx context.Context, name, company, imageData, ownerID string) (*models.Card, error) {
	if imageData == "" || ownerID == "" {
		return nil, models.ErrInvalidInput
	}
	if len(imageData) > s.imageMaxBytes {
		return nil, models.ErrPayloadTooLarge
	}

	count, err := s.countByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if count >= s.ownerQuota {
		return nil, models.ErrQuotaExceeded
	}

	id, err := s.generateID(ctx)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = defaultName
	}
	if company == "" {
		company = defaultCompany
	}

	card := &models.Card{
		ID:        id,
		Name:      name,
		Company:   company,
		ImageData: imageData,
		OwnerID:   ownerID,
		CreatedAt: s.now().UnixMilli(),
	}

	value, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("could not encode card: %w", err)
	}
	if err := s.kv.Put(ctx, cardKey(id), value, map[string]string{"ownerId": ownerID}); err != nil {
		return nil, fmt.Errorf("could not store card: %w", err)
	}

	// read-back to catch writes the backend dropped without an error
	if _, err := s.kv.Get(ctx, cardKey(id)); err != nil {
		log.Warnf("card %s not readable after put: %v", id, err)
	}

	return card, nil
}

// generateID returns a random id, probing the namespace to dodge
// collisions. After collisionProbes failed probes it proceeds with the
// last candidate anyway: random collisions at that rate are effectively
// impossible, the probe is a defensive check rather than a guarantee.
func (s *CardStore) generateID(ctx context.Context) (string, error) {
	id := uuid.NewString()
	for attempt := 1; attempt <= collisionProbes; attempt++ {
		_, err := s.kv.Get(ctx, cardKey(id))
		if errors.Is(err, kv.ErrKeyNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("could not probe card key: %w", err)
		}
		id = uuid.NewString()
		log.Warnf("card id collision, attempt %d, new id %s", attempt, id)
	}
	log.Warnf("card id probes exhausted, proceeding with %s", id)
	return id, nil
}

// countByOwner drains every page of the namespace and counts keys whose
// metadata ownerId matches.
func (s *CardStore) countByOwner(ctx context.Context, ownerID string) (int, error) {
	count := 0
	cursor := ""
	for {
		res, err := s.kv.List(ctx, keyPrefix, cursor, s.listLimit)
		if err != nil {
			return 0, fmt.Errorf("could not scan card namespace: %w", err)
		}
		for _, key := range res.Keys {
			if key.Metadata["ownerId"] == ownerID {
				count++
			}
		}
		if res.Complete {
			return count, nil
		}
		cursor = res.Cursor
	}
}

// Get fetches a card by id. There is no ownership check: cards are
// reachable by anyone holding the share link.
func (s *CardStore) Get(ctx context.Context, id string) (*models.Card, error) {
	value, err := s.kv.Get(ctx, cardKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("could not get card: %w", err)
	}

	var card models.Card
	if err := json.Unmarshal(value, &card); err != nil {
		log.Warnf("card %s has corrupt payload: %v", id, err)
		return nil, models.ErrNotFound
	}
	return &card, nil
}

// ListByOwner returns the owner's cards newest first. The ownerId lives
// in key metadata only, so every key under the prefix is visited; cost is
// proportional to the whole namespace, accepted for the expected volumes.
// Corrupt or vanished values are skipped so one bad record does not break
// the listing.
func (s *CardStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Card, error) {
	if ownerID == "" {
		return nil, models.ErrInvalidInput
	}

	cards := []models.Card{}
	cursor := ""
	for {
		res, err := s.kv.List(ctx, keyPrefix, cursor, s.listLimit)
		if err != nil {
			return nil, fmt.Errorf("could not scan card namespace: %w", err)
		}
		for _, key := range res.Keys {
			if key.Metadata["ownerId"] != ownerID {
				continue
			}
			value, err := s.kv.Get(ctx, key.Name)
			if err != nil {
				continue
			}
			var card models.Card
			if err := json.Unmarshal(value, &card); err != nil {
				log.Warnf("skipping corrupt card %s: %v", key.Name, err)
				continue
			}
			cards = append(cards, card)
		}
		if res.Complete {
			break
		}
		cursor = res.Cursor
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].CreatedAt > cards[j].CreatedAt
	})
	return cards, nil
}

// Delete removes a card after checking the caller owns it. Deleting an
// absent card succeeds, so a double-tap never surfaces an error; the
// returned bool reports whether a record actually existed, so callers can
// skip side effects for the no-op case. A record whose payload no longer
// decodes is treated as absent and cleaned up.
func (s *CardStore) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	if ownerID == "" {
		return false, models.ErrUnauthorized
	}

	existed := true
	value, err := s.kv.Get(ctx, cardKey(id))
	switch {
	case errors.Is(err, kv.ErrKeyNotFound):
		// already gone, fall through to the idempotent delete
		existed = false
	case err != nil:
		return false, fmt.Errorf("could not get card: %w", err)
	default:
		var card models.Card
		if err := json.Unmarshal(value, &card); err == nil && card.OwnerID != ownerID {
			return false, models.ErrForbidden
		}
	}

	if err := s.kv.Delete(ctx, cardKey(id)); err != nil {
		return false, fmt.Errorf("could not delete card: %w", err)
	}
	return existed, nil
}
