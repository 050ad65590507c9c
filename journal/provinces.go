package journal

import (
	"context"
	"errors"
	"slices"
	"strings"

	"couple-journal/model"
	"couple-journal/storage"

	"go.uber.org/zap"
)

type ProvinceService struct {
	db  storage.ProvinceDB
	log *zap.Logger
}

func NewProvinceService(db storage.ProvinceDB, log *zap.Logger) *ProvinceService {
	return &ProvinceService{db: db, log: log}
}

// Seed stores the base region list if none is stored yet.
func (s *ProvinceService) Seed(ctx context.Context) error {
	base := model.BaseProvinces()
	rows := make([]model.ProvinceDB, len(base))
	for i, p := range base {
		rows[i] = model.ToProvinceDB(p)
	}
	return s.db.SeedProvinces(ctx, rows)
}

func (s *ProvinceService) base(ctx context.Context) []model.Province {
	rows, err := s.db.ListProvinces(ctx)
	if err != nil {
		s.log.Error("error fetching provinces", zap.Error(err))
	}
	if len(rows) == 0 {
		return model.BaseProvinces()
	}
	provinces := make([]model.Province, len(rows))
	for i, row := range rows {
		provinces[i] = model.ToProvince(row)
	}
	return provinces
}

// List returns every province with the viewer's visits merged in. If the
// visits cannot be read the unvisited base list is returned.
func (s *ProvinceService) List(ctx context.Context, v Viewer) ([]model.Province, error) {
	base := s.base(ctx)
	visits, err := s.db.ListVisits(ctx, v.scope())
	if err != nil {
		s.log.Error("error fetching user province visits", zap.String("user_id", v.UserID), zap.Error(err))
		return base, nil
	}
	return model.MergeVisits(base, visits), nil
}

func (s *ProvinceService) Get(ctx context.Context, v Viewer, provinceID string) (model.Province, error) {
	provinces, err := s.List(ctx, v)
	if err != nil {
		return model.Province{}, err
	}
	for _, p := range provinces {
		if p.ID == provinceID {
			return p, nil
		}
	}
	return model.Province{}, ErrNotFound
}

func (s *ProvinceService) Stats(ctx context.Context, v Viewer) (model.FootprintStats, error) {
	provinces, err := s.List(ctx, v)
	if err != nil {
		return model.FootprintStats{}, err
	}
	return model.Footprint(provinces), nil
}

// Resolve accepts a province id or its Chinese name.
func (s *ProvinceService) Resolve(idOrName string) (string, error) {
	idOrName = strings.TrimSpace(idOrName)
	for _, p := range model.BaseProvinces() {
		if p.ID == idOrName {
			return p.ID, nil
		}
	}
	if id, ok := model.ProvinceIDByName(idOrName); ok {
		return id, nil
	}
	return "", invalid("unknown province %q", idOrName)
}

// visitChange records what MarkVisited did so it can be reverted.
type visitChange struct {
	previous *model.UserProvinceVisitDB
	current  model.UserProvinceVisitDB
}

// MarkVisited records photos for the viewer's visit to a province (and city).
// An existing visit keeps its photos, gains the new ones and takes the new
// date.
func (s *ProvinceService) MarkVisited(ctx context.Context, v Viewer, provinceID, city, visitDate string, photos []string) (model.Province, error) {
	if _, err := s.markVisited(ctx, v, provinceID, city, visitDate, photos); err != nil {
		return model.Province{}, err
	}
	return s.Get(ctx, v, provinceID)
}

func (s *ProvinceService) markVisited(ctx context.Context, v Viewer, provinceID, city, visitDate string, photos []string) (visitChange, error) {
	if err := v.canWrite(); err != nil {
		return visitChange{}, err
	}
	provinceID, err := s.Resolve(provinceID)
	if err != nil {
		return visitChange{}, err
	}
	city = strings.TrimSpace(city)

	existing, err := s.db.FindVisit(ctx, v.UserID, provinceID, city)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Error("error fetching province visit", zap.String("province_id", provinceID), zap.Error(err))
		return visitChange{}, err
	}

	if existing != nil {
		merged := append(slices.Clone(existing.Photos), photos...)
		if err := s.db.UpdateVisit(ctx, existing.ID, visitDate, merged); err != nil {
			s.log.Error("error updating province visit", zap.String("province_id", provinceID), zap.Error(err))
			return visitChange{}, err
		}
		current := *existing
		current.Photos = merged
		if visitDate != "" {
			current.VisitDate = visitDate
		}
		return visitChange{previous: existing, current: current}, nil
	}

	row, err := s.db.InsertVisit(ctx, model.UserProvinceVisitDB{
		UserID:     v.UserID,
		ProvinceID: provinceID,
		City:       city,
		VisitDate:  visitDate,
		Photos:     slices.Clone(photos),
	})
	if err != nil {
		s.log.Error("error creating province visit", zap.String("province_id", provinceID), zap.Error(err))
		return visitChange{}, err
	}
	return visitChange{current: row}, nil
}

func (s *ProvinceService) revertVisit(ctx context.Context, change visitChange) error {
	if change.previous != nil {
		return s.db.RestoreVisit(ctx, *change.previous)
	}
	return s.db.DeleteVisit(ctx, change.current.ID)
}

// Album lists the photos of one province for the viewer.
func (s *ProvinceService) Album(ctx context.Context, v Viewer, provinceID string) ([]string, error) {
	p, err := s.Get(ctx, v, provinceID)
	if err != nil {
		return nil, err
	}
	return p.Photos, nil
}

// deleteProvincePhoto removes url from the viewer's visits to one province.
// It returns the rows as they were before, for reverting.
func (s *ProvinceService) deleteProvincePhoto(ctx context.Context, v Viewer, provinceID, url string) ([]model.UserProvinceVisitDB, error) {
	if err := v.canWrite(); err != nil {
		return nil, err
	}
	rows, err := s.db.ListProvinceVisits(ctx, v.UserID, provinceID)
	if err != nil {
		s.log.Error("error fetching province visit", zap.String("province_id", provinceID), zap.Error(err))
		return nil, err
	}
	rows = slices.DeleteFunc(rows, func(r model.UserProvinceVisitDB) bool {
		return !slices.Contains(r.Photos, url)
	})
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, s.stripPhoto(ctx, rows, url)
}

// removePhotoEverywhere removes url from every visit of the viewer.
func (s *ProvinceService) removePhotoEverywhere(ctx context.Context, v Viewer, url string) ([]model.UserProvinceVisitDB, error) {
	if err := v.canWrite(); err != nil {
		return nil, err
	}
	rows, err := s.db.ListVisitsWithPhoto(ctx, v.UserID, url)
	if err != nil {
		s.log.Error("error fetching province visits for photo cleanup", zap.Error(err))
		return nil, err
	}
	return rows, s.stripPhoto(ctx, rows, url)
}

// stripPhoto drops url from each row, deleting rows left without photos. If a
// write fails the rows already touched are put back.
func (s *ProvinceService) stripPhoto(ctx context.Context, rows []model.UserProvinceVisitDB, url string) error {
	for i, row := range rows {
		photos, _ := model.RemoveString(row.Photos, url)
		var err error
		if len(photos) == 0 {
			err = s.db.DeleteVisit(ctx, row.ID)
		} else {
			err = s.db.UpdateVisit(ctx, row.ID, "", photos)
		}
		if err != nil {
			s.log.Error("error updating province photos", zap.String("province_id", row.ProvinceID), zap.Error(err))
			if rerr := s.restoreVisits(context.WithoutCancel(ctx), rows[:i]); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
	}
	return nil
}

func (s *ProvinceService) restoreVisits(ctx context.Context, rows []model.UserProvinceVisitDB) error {
	var errs []error
	for _, row := range rows {
		if err := s.db.RestoreVisit(ctx, row); err != nil {
			s.log.Error("error restoring province visit", zap.String("id", row.ID.Hex()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
