package journal

import (
	"context"
	"strings"

	"couple-journal/model"
	"couple-journal/storage"

	"go.uber.org/zap"
)

const (
	TravelPlaceholder       = "https://source.unsplash.com/random/400x300/?travel"
	LovePlaceholder         = "https://source.unsplash.com/random/400x300/?love"
	DefaultAnniversaryPlace = "我们的小世界"
)

// Journal ties the per-entity services together and runs the writes that
// touch more than one of them.
type Journal struct {
	Timeline      *TimelineService
	Discovery     *DiscoveryService
	Anniversaries *AnniversaryService
	Provinces     *ProvinceService

	log *zap.Logger
}

func New(timeline storage.TimelineDB, provinces storage.ProvinceDB, discovery storage.DiscoveryDB, anniversaries storage.AnniversaryDB, log *zap.Logger) *Journal {
	return &Journal{
		Timeline:      NewTimelineService(timeline, log),
		Discovery:     NewDiscoveryService(discovery, log),
		Anniversaries: NewAnniversaryService(anniversaries, log),
		Provinces:     NewProvinceService(provinces, log),
		log:           log,
	}
}

type PublishInput struct {
	Image    string              `json:"image" validate:"required"`
	Title    string              `json:"title" validate:"required"`
	Location string              `json:"location"`
	Type     model.DiscoveryType `json:"type" validate:"required,oneof=food goods shop fun"`
	Date     string              `json:"date" validate:"required"`
	TopBadge bool                `json:"topBadge"`
}

type PublishResult struct {
	Item  model.DiscoveryItem `json:"item"`
	Event model.TimelineEvent `json:"event"`
}

// Publish adds a discovery card and echoes it onto the timeline on the same
// date.
func (j *Journal) Publish(ctx context.Context, v Viewer, in PublishInput) (PublishResult, error) {
	if err := v.canWrite(); err != nil {
		return PublishResult{}, err
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return PublishResult{}, invalid("%v", err)
	}
	if !in.Type.Valid() {
		return PublishResult{}, invalid("unknown discovery type %q", in.Type)
	}

	var res PublishResult
	err = newWorkflow("publish", j.log).
		then("create discovery item",
			func(ctx context.Context) error {
				item, err := j.Discovery.Create(ctx, v, model.DiscoveryItem{
					Image:    in.Image,
					Title:    in.Title,
					Location: in.Location,
					Type:     in.Type,
					Date:     in.Date,
					TopBadge: in.TopBadge,
				})
				res.Item = item
				return err
			},
			func(ctx context.Context) error {
				return j.Discovery.Delete(ctx, v, res.Item.ID)
			}).
		then("create timeline event",
			func(ctx context.Context) error {
				event := model.TimelineEvent{
					Title:    in.Title,
					Location: in.Location,
					Images:   []string{in.Image},
					Note:     "[发布" + in.Type.Label() + "] " + in.Title,
				}
				event.SetDate(date)
				created, err := j.Timeline.Create(ctx, v, event)
				res.Event = created
				return err
			}, nil).
		run(ctx)
	if err != nil {
		return PublishResult{}, err
	}
	return res, nil
}

type FootprintInput struct {
	Province string   `json:"provinceId" validate:"required"`
	City     string   `json:"city" validate:"required"`
	Date     string   `json:"date" validate:"required"`
	Note     string   `json:"note"`
	Photos   []string `json:"photos"`
}

type FootprintResult struct {
	Event    model.TimelineEvent `json:"event"`
	Province model.Province      `json:"province"`
}

// RecordFootprint logs a trip: a special timeline entry for the city, then
// the province lights up on the map with the trip's photos.
func (j *Journal) RecordFootprint(ctx context.Context, v Viewer, in FootprintInput) (FootprintResult, error) {
	if err := v.canWrite(); err != nil {
		return FootprintResult{}, err
	}
	provinceID, err := j.Provinces.Resolve(in.Province)
	if err != nil {
		return FootprintResult{}, err
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return FootprintResult{}, invalid("%v", err)
	}
	city := strings.TrimSpace(in.City)
	if city == "" {
		return FootprintResult{}, invalid("city is required")
	}

	images := in.Photos
	if len(images) == 0 {
		images = []string{TravelPlaceholder}
	}

	var res FootprintResult
	err = newWorkflow("footprint", j.log).
		then("create timeline event",
			func(ctx context.Context) error {
				event := model.TimelineEvent{
					Title:     city + "之旅",
					Location:  city,
					Images:    images,
					Note:      in.Note,
					IsSpecial: true,
				}
				event.SetDate(date)
				created, err := j.Timeline.Create(ctx, v, event)
				res.Event = created
				return err
			},
			func(ctx context.Context) error {
				return j.Timeline.Delete(ctx, v, res.Event.ID)
			}).
		then("mark province visited",
			func(ctx context.Context) error {
				_, err := j.Provinces.markVisited(ctx, v, provinceID, city, date.Format("2006.01.02"), in.Photos)
				return err
			}, nil).
		run(ctx)
	if err != nil {
		return FootprintResult{}, err
	}

	res.Province, err = j.Provinces.Get(ctx, v, provinceID)
	if err != nil {
		return FootprintResult{}, err
	}
	return res, nil
}

type AnniversaryInput struct {
	Title    string `json:"title" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Image    string `json:"image"`
	Location string `json:"location"`
}

type AnniversaryResult struct {
	Anniversary model.Anniversary   `json:"anniversary"`
	Event       model.TimelineEvent `json:"event"`
}

// AddAnniversary stores the anniversary and marks it on the timeline.
func (j *Journal) AddAnniversary(ctx context.Context, v Viewer, in AnniversaryInput) (AnniversaryResult, error) {
	if err := v.canWrite(); err != nil {
		return AnniversaryResult{}, err
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return AnniversaryResult{}, invalid("%v", err)
	}

	location := in.Location
	if location == "" {
		location = DefaultAnniversaryPlace
	}
	image := in.Image
	if image == "" {
		image = LovePlaceholder
	}

	var res AnniversaryResult
	err = newWorkflow("add anniversary", j.log).
		then("create anniversary",
			func(ctx context.Context) error {
				ann, err := j.Anniversaries.Create(ctx, v, model.Anniversary{
					Title:    in.Title,
					Date:     date.Format(model.DateLayout),
					Image:    in.Image,
					Location: in.Location,
				})
				res.Anniversary = ann
				return err
			},
			func(ctx context.Context) error {
				return j.Anniversaries.Delete(ctx, v, res.Anniversary.ID)
			}).
		then("create timeline event",
			func(ctx context.Context) error {
				event := model.TimelineEvent{
					Title:     in.Title,
					Location:  location,
					Images:    []string{image},
					Note:      "纪念日：" + in.Title + " ❤️",
					IsSpecial: true,
				}
				event.SetDate(date)
				created, err := j.Timeline.Create(ctx, v, event)
				res.Event = created
				return err
			}, nil).
		run(ctx)
	if err != nil {
		return AnniversaryResult{}, err
	}
	return res, nil
}

// DeleteAlbumPhoto removes a photo from a province album and from every
// timeline event that shows it.
func (j *Journal) DeleteAlbumPhoto(ctx context.Context, v Viewer, provinceID, url string) error {
	if err := v.canWrite(); err != nil {
		return err
	}
	if url == "" {
		return invalid("url is required")
	}
	provinceID, err := j.Provinces.Resolve(provinceID)
	if err != nil {
		return err
	}

	var before []model.UserProvinceVisitDB
	return newWorkflow("delete album photo", j.log).
		then("remove photo from province",
			func(ctx context.Context) error {
				rows, err := j.Provinces.deleteProvincePhoto(ctx, v, provinceID, url)
				before = rows
				return err
			},
			func(ctx context.Context) error {
				return j.Provinces.restoreVisits(ctx, before)
			}).
		then("remove photo from timeline",
			func(ctx context.Context) error {
				return j.Timeline.removeImage(ctx, v, url)
			}, nil).
		run(ctx)
}

// SyncDeletePhoto removes a photo from every province visit and every
// timeline event of the viewer.
func (j *Journal) SyncDeletePhoto(ctx context.Context, v Viewer, url string) error {
	if err := v.canWrite(); err != nil {
		return err
	}
	if url == "" {
		return invalid("url is required")
	}

	var before []model.UserProvinceVisitDB
	return newWorkflow("sync delete photo", j.log).
		then("remove photo from provinces",
			func(ctx context.Context) error {
				rows, err := j.Provinces.removePhotoEverywhere(ctx, v, url)
				before = rows
				return err
			},
			func(ctx context.Context) error {
				return j.Provinces.restoreVisits(ctx, before)
			}).
		then("remove photo from timeline",
			func(ctx context.Context) error {
				return j.Timeline.removeImage(ctx, v, url)
			}, nil).
		run(ctx)
}

// Detail loads what the detail view shows for a timeline event or a
// discovery card.
func (j *Journal) Detail(ctx context.Context, v Viewer, kind model.DetailKind, id string) (model.Detail, error) {
	switch kind {
	case model.DetailTimeline:
		event, err := j.Timeline.Get(ctx, v, id)
		if err != nil {
			return nil, err
		}
		return event.Detail(), nil
	case model.DetailDiscovery:
		item, err := j.Discovery.Get(ctx, v, id)
		if err != nil {
			return nil, err
		}
		return item.Detail(), nil
	}
	return nil, invalid("unknown detail kind %q", kind)
}
