package journal

import (
	"context"
	"strings"

	"couple-journal/model"
	"couple-journal/storage"

	"go.uber.org/zap"
)

type DiscoveryService struct {
	db  storage.DiscoveryDB
	log *zap.Logger
}

func NewDiscoveryService(db storage.DiscoveryDB, log *zap.Logger) *DiscoveryService {
	return &DiscoveryService{db: db, log: log}
}

// List returns the viewer's discovery cards, newest first.
func (s *DiscoveryService) List(ctx context.Context, v Viewer) ([]model.DiscoveryItem, error) {
	rows, err := s.db.ListDiscoveryItems(ctx, v.scope())
	if err != nil {
		s.log.Error("error fetching discovery items", zap.String("user_id", v.UserID), zap.Error(err))
		return nil, err
	}
	items := make([]model.DiscoveryItem, len(rows))
	for i, row := range rows {
		items[i] = model.ToDiscoveryItem(row)
	}
	return items, nil
}

func (s *DiscoveryService) Get(ctx context.Context, v Viewer, id string) (model.DiscoveryItem, error) {
	row, err := s.db.GetDiscoveryItem(ctx, id, v.scope())
	if err != nil {
		return model.DiscoveryItem{}, translate(err)
	}
	return model.ToDiscoveryItem(*row), nil
}

func (s *DiscoveryService) Create(ctx context.Context, v Viewer, item model.DiscoveryItem) (model.DiscoveryItem, error) {
	if err := v.canWrite(); err != nil {
		return model.DiscoveryItem{}, err
	}
	if strings.TrimSpace(item.Title) == "" {
		return model.DiscoveryItem{}, invalid("title is required")
	}
	if !item.Type.Valid() {
		return model.DiscoveryItem{}, invalid("unknown discovery type %q", item.Type)
	}

	row, err := s.db.InsertDiscoveryItem(ctx, model.ToDiscoveryItemDB(item, v.UserID))
	if err != nil {
		s.log.Error("error creating discovery item", zap.String("user_id", v.UserID), zap.Error(err))
		return model.DiscoveryItem{}, err
	}
	return model.ToDiscoveryItem(row), nil
}

func (s *DiscoveryService) Update(ctx context.Context, v Viewer, id string, patch model.DiscoveryItemPatch) (model.DiscoveryItem, error) {
	if err := v.canWrite(); err != nil {
		return model.DiscoveryItem{}, err
	}
	if patch.Type != nil && *patch.Type != "" && !patch.Type.Valid() {
		return model.DiscoveryItem{}, invalid("unknown discovery type %q", *patch.Type)
	}
	row, err := s.db.UpdateDiscoveryItem(ctx, id, v.UserID, patch.Fields())
	if err != nil {
		if translate(err) != ErrNotFound {
			s.log.Error("error updating discovery item", zap.String("id", id), zap.Error(err))
		}
		return model.DiscoveryItem{}, translate(err)
	}
	return model.ToDiscoveryItem(row), nil
}

func (s *DiscoveryService) Delete(ctx context.Context, v Viewer, id string) error {
	if err := v.canWrite(); err != nil {
		return err
	}
	if err := s.db.DeleteDiscoveryItem(ctx, id, v.UserID); err != nil {
		if translate(err) != ErrNotFound {
			s.log.Error("error deleting discovery item", zap.String("id", id), zap.Error(err))
		}
		return translate(err)
	}
	return nil
}
