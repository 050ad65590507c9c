package journal

import (
	"context"
	"strings"
	"time"

	"couple-journal/model"
	"couple-journal/storage"

	"go.uber.org/zap"
)

type AnniversaryService struct {
	db  storage.AnniversaryDB
	log *zap.Logger
	now func() time.Time
}

func NewAnniversaryService(db storage.AnniversaryDB, log *zap.Logger) *AnniversaryService {
	return &AnniversaryService{db: db, log: log, now: time.Now}
}

// List returns anniversaries in creation order with their day counts.
func (s *AnniversaryService) List(ctx context.Context, v Viewer) ([]model.Anniversary, error) {
	rows, err := s.db.ListAnniversaries(ctx, v.scope())
	if err != nil {
		s.log.Error("error fetching anniversaries", zap.String("user_id", v.UserID), zap.Error(err))
		return nil, err
	}
	now := s.now()
	anns := make([]model.Anniversary, len(rows))
	for i, row := range rows {
		anns[i] = model.ToAnniversary(row).WithDaysCount(now)
	}
	return anns, nil
}

// Primary is the anniversary the day counter is shown for.
func (s *AnniversaryService) Primary(ctx context.Context, v Viewer) (model.Anniversary, error) {
	anns, err := s.List(ctx, v)
	if err != nil {
		return model.Anniversary{}, err
	}
	return model.PrimaryAnniversary(anns).WithDaysCount(s.now()), nil
}

func (s *AnniversaryService) Create(ctx context.Context, v Viewer, ann model.Anniversary) (model.Anniversary, error) {
	if err := v.canWrite(); err != nil {
		return model.Anniversary{}, err
	}
	if strings.TrimSpace(ann.Title) == "" {
		return model.Anniversary{}, invalid("title is required")
	}
	if _, err := time.Parse(model.DateLayout, ann.Date); err != nil {
		return model.Anniversary{}, invalid("date must be YYYY-MM-DD")
	}

	row, err := s.db.InsertAnniversary(ctx, model.ToAnniversaryDB(ann, v.UserID))
	if err != nil {
		s.log.Error("error creating anniversary", zap.String("user_id", v.UserID), zap.Error(err))
		return model.Anniversary{}, err
	}
	return model.ToAnniversary(row).WithDaysCount(s.now()), nil
}

func (s *AnniversaryService) Delete(ctx context.Context, v Viewer, id string) error {
	if err := v.canWrite(); err != nil {
		return err
	}
	return translate(s.db.DeleteAnniversary(ctx, id, v.UserID))
}
