package service

import (
	"context"

	"github.com/scanbridge/card-services/internal/cardsvc/models"
	"github.com/scanbridge/card-services/internal/cardsvc/store"
)

type CardService struct {
	store *store.CardStore
}

func NewCardService(store *store.CardStore) *CardService {
	return &CardService{store: store}
}

func (s *CardService) Create(ctx context.Context, name, company, imageData, ownerID string) (*models.Card, error) {
	return s.store.Create(ctx, name, company, imageData, ownerID)
}

func (s *CardService) Get(ctx context.Context, id string) (*models.Card, error) {
	return s.store.Get(ctx, id)
}

func (s *CardService) ListByOwner(ctx context.Context, ownerID string) ([]models.Card, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

func (s *CardService) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	return s.store.Delete(ctx, id, ownerID)
}
