package journal

import (
	"context"
	"strings"

	"couple-journal/model"
	"couple-journal/storage"

	"go.uber.org/zap"
)

type TimelineService struct {
	db  storage.TimelineDB
	log *zap.Logger
}

func NewTimelineService(db storage.TimelineDB, log *zap.Logger) *TimelineService {
	return &TimelineService{db: db, log: log}
}

// List returns the viewer's events newest first by calendar date.
func (s *TimelineService) List(ctx context.Context, v Viewer) ([]model.TimelineEvent, error) {
	rows, err := s.db.ListTimelineEvents(ctx, v.scope())
	if err != nil {
		s.log.Error("error fetching timeline events", zap.String("user_id", v.UserID), zap.Error(err))
		return nil, err
	}
	events := make([]model.TimelineEvent, len(rows))
	for i, row := range rows {
		events[i] = model.ToTimelineEvent(row)
	}
	model.SortTimeline(events)
	return events, nil
}

func (s *TimelineService) Get(ctx context.Context, v Viewer, id string) (model.TimelineEvent, error) {
	row, err := s.db.GetTimelineEvent(ctx, id, v.scope())
	if err != nil {
		return model.TimelineEvent{}, translate(err)
	}
	return model.ToTimelineEvent(*row), nil
}

func (s *TimelineService) Create(ctx context.Context, v Viewer, event model.TimelineEvent) (model.TimelineEvent, error) {
	if err := v.canWrite(); err != nil {
		return model.TimelineEvent{}, err
	}
	if strings.TrimSpace(event.Title) == "" {
		return model.TimelineEvent{}, invalid("title is required")
	}
	if event.Year == "" || event.Month == "" || event.Date == "" {
		return model.TimelineEvent{}, invalid("year, month and date are required")
	}

	row, err := s.db.InsertTimelineEvent(ctx, model.ToTimelineEventDB(event, v.UserID))
	if err != nil {
		s.log.Error("error creating timeline event", zap.String("user_id", v.UserID), zap.Error(err))
		return model.TimelineEvent{}, err
	}
	return model.ToTimelineEvent(row), nil
}

func (s *TimelineService) Update(ctx context.Context, v Viewer, id string, patch model.TimelineEventPatch) (model.TimelineEvent, error) {
	if err := v.canWrite(); err != nil {
		return model.TimelineEvent{}, err
	}
	row, err := s.db.UpdateTimelineEvent(ctx, id, v.UserID, patch.Fields())
	if err != nil {
		if translate(err) != ErrNotFound {
			s.log.Error("error updating timeline event", zap.String("id", id), zap.Error(err))
		}
		return model.TimelineEvent{}, translate(err)
	}
	return model.ToTimelineEvent(row), nil
}

func (s *TimelineService) Delete(ctx context.Context, v Viewer, id string) error {
	if err := v.canWrite(); err != nil {
		return err
	}
	if err := s.db.DeleteTimelineEvent(ctx, id, v.UserID); err != nil {
		if translate(err) != ErrNotFound {
			s.log.Error("error deleting timeline event", zap.String("id", id), zap.Error(err))
		}
		return translate(err)
	}
	return nil
}

// removeImage pulls url out of every event of the viewer that holds it.
func (s *TimelineService) removeImage(ctx context.Context, v Viewer, url string) error {
	n, err := s.db.RemoveImageFromTimelineEvents(ctx, v.UserID, url)
	if err != nil {
		s.log.Error("error updating timeline event images", zap.String("user_id", v.UserID), zap.Error(err))
		return err
	}
	s.log.Info("image removed from timeline", zap.String("user_id", v.UserID), zap.Int64("events", n))
	return nil
}
