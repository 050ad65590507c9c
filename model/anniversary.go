package model

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Anniversary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"` // 2006-01-02
	DaysCount *int   `json:"daysCount,omitempty"`
	Image     string `json:"image,omitempty"`
	Location  string `json:"location,omitempty"`
}

type AnniversaryDB struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Title     string             `bson:"title"`
	Date      string             `bson:"date"`
	Image     *string            `bson:"image"`
	Location  *string            `bson:"location"`
	CreatedAt time.Time          `bson:"created_at"`
}

// DefaultAnniversary stands in as the primary anniversary until one is added.
var DefaultAnniversary = Anniversary{Title: "我们在一起", Date: "2023-05-20"}

func ToAnniversary(db AnniversaryDB) Anniversary {
	ann := Anniversary{
		ID:    db.ID.Hex(),
		Title: db.Title,
		Date:  db.Date,
	}
	if db.Image != nil {
		ann.Image = *db.Image
	}
	if db.Location != nil {
		ann.Location = *db.Location
	}
	return ann
}

func ToAnniversaryDB(ann Anniversary, userID string) AnniversaryDB {
	db := AnniversaryDB{
		UserID: userID,
		Title:  ann.Title,
		Date:   ann.Date,
	}
	if ann.Image != "" {
		image := ann.Image
		db.Image = &image
	}
	if ann.Location != "" {
		location := ann.Location
		db.Location = &location
	}
	return db
}

// DaysSince counts whole days elapsed from date to now. Unparsable dates
// count as zero.
func DaysSince(date string, now time.Time) int {
	start, err := ParseDate(date)
	if err != nil {
		return 0
	}
	return int(math.Floor(now.Sub(start).Hours() / 24))
}

// WithDaysCount returns ann with DaysCount filled for now.
func (ann Anniversary) WithDaysCount(now time.Time) Anniversary {
	days := DaysSince(ann.Date, now)
	ann.DaysCount = &days
	return ann
}

// PrimaryAnniversary is the first anniversary in creation order.
func PrimaryAnniversary(anns []Anniversary) Anniversary {
	if len(anns) == 0 {
		return DefaultAnniversary
	}
	return anns[0]
}
