package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimelineEvent is a dated entry on the couple's timeline. The calendar date is
// kept as display strings ("24", "周二", "10月", "2023"), never as one value.
type TimelineEvent struct {
	ID        string   `json:"id"`
	Date      string   `json:"date"`
	DayOfWeek string   `json:"dayOfWeek"`
	Month     string   `json:"month"`
	Year      string   `json:"year"`
	Title     string   `json:"title"`
	Location  string   `json:"location"`
	Images    []string `json:"images"`
	Note      string   `json:"note,omitempty"`
	IsSpecial bool     `json:"isSpecial,omitempty"`
}

type TimelineEventDB struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Date      string             `bson:"date"`
	DayOfWeek string             `bson:"day_of_week"`
	Month     string             `bson:"month"`
	Year      string             `bson:"year"`
	Title     string             `bson:"title"`
	Location  string             `bson:"location"`
	Images    []string           `bson:"images"`
	Note      *string            `bson:"note"`
	IsSpecial bool               `bson:"is_special"`
	CreatedAt time.Time          `bson:"created_at"`
}

// TimelineEventPatch carries a partial update. Nil and empty values are left
// untouched.
type TimelineEventPatch struct {
	Date      *string   `json:"date,omitempty"`
	DayOfWeek *string   `json:"dayOfWeek,omitempty"`
	Month     *string   `json:"month,omitempty"`
	Year      *string   `json:"year,omitempty"`
	Title     *string   `json:"title,omitempty"`
	Location  *string   `json:"location,omitempty"`
	Images    *[]string `json:"images,omitempty"`
	Note      *string   `json:"note,omitempty"`
	IsSpecial *bool     `json:"isSpecial,omitempty"`
}

func ToTimelineEvent(db TimelineEventDB) TimelineEvent {
	event := TimelineEvent{
		ID:        db.ID.Hex(),
		Date:      db.Date,
		DayOfWeek: db.DayOfWeek,
		Month:     db.Month,
		Year:      db.Year,
		Title:     db.Title,
		Location:  db.Location,
		Images:    db.Images,
		IsSpecial: db.IsSpecial,
	}
	if event.Images == nil {
		event.Images = []string{}
	}
	if db.Note != nil {
		event.Note = *db.Note
	}
	return event
}

func ToTimelineEventDB(event TimelineEvent, userID string) TimelineEventDB {
	db := TimelineEventDB{
		UserID:    userID,
		Date:      event.Date,
		DayOfWeek: event.DayOfWeek,
		Month:     event.Month,
		Year:      event.Year,
		Title:     event.Title,
		Location:  event.Location,
		Images:    event.Images,
		IsSpecial: event.IsSpecial,
	}
	if db.Images == nil {
		db.Images = []string{}
	}
	if event.Note != "" {
		note := event.Note
		db.Note = &note
	}
	return db
}

// Fields returns the storage columns the patch sets.
func (p TimelineEventPatch) Fields() map[string]any {
	fields := map[string]any{}
	setString := func(column string, v *string) {
		if v != nil && *v != "" {
			fields[column] = *v
		}
	}
	setString("date", p.Date)
	setString("day_of_week", p.DayOfWeek)
	setString("month", p.Month)
	setString("year", p.Year)
	setString("title", p.Title)
	setString("location", p.Location)
	setString("note", p.Note)
	if p.Images != nil {
		fields["images"] = *p.Images
	}
	if p.IsSpecial != nil {
		fields["is_special"] = *p.IsSpecial
	}
	return fields
}

var weekdays = [...]string{"日", "一", "二", "三", "四", "五", "六"}

// DateLayout is the calendar date format accepted from clients.
const DateLayout = "2006-01-02"

// SetDate fills the display date fields of the event from t.
func (e *TimelineEvent) SetDate(t time.Time) {
	e.Date = strconv.Itoa(t.Day())
	e.DayOfWeek = "周" + weekdays[t.Weekday()]
	e.Month = strconv.Itoa(int(t.Month())) + "月"
	e.Year = strconv.Itoa(t.Year())
}

// ParseDate accepts either a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// leadingNumber reads the digits at the start of s: "10月" is 10, "5" is 5.
// Anything unparsable counts as zero.
func leadingNumber(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// SortTimeline orders events newest first by year, month and day. The sort is
// stable so events on the same day keep their incoming order.
func SortTimeline(events []TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if ya, yb := leadingNumber(a.Year), leadingNumber(b.Year); ya != yb {
			return ya > yb
		}
		if ma, mb := leadingNumber(a.Month), leadingNumber(b.Month); ma != mb {
			return ma > mb
		}
		return leadingNumber(a.Date) > leadingNumber(b.Date)
	})
}

// RemoveString returns list without any occurrence of s and whether it changed.
func RemoveString(list []string, s string) ([]string, bool) {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out, len(out) != len(list)
}
