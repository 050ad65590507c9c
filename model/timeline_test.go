package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSortTimeline(t *testing.T) {
	events := []TimelineEvent{
		{ID: "a", Year: "2023", Month: "9月", Date: "30"},
		{ID: "b", Year: "2023", Month: "10月", Date: "5"},
		{ID: "c", Year: "2022", Month: "12月", Date: "31"},
		{ID: "d", Year: "2024", Month: "1月", Date: "1"},
		{ID: "e", Year: "2023", Month: "10月", Date: "24"},
	}

	SortTimeline(events)

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"d", "e", "b", "a", "c"}, ids)
}

func TestSortTimeline_StableForSameDay(t *testing.T) {
	events := []TimelineEvent{
		{ID: "newer", Year: "2023", Month: "5月", Date: "20"},
		{ID: "older", Year: "2023", Month: "5月", Date: "20"},
	}

	SortTimeline(events)

	assert.Equal(t, "newer", events[0].ID)
	assert.Equal(t, "older", events[1].ID)
}

func TestSortTimeline_MalformedFieldsSortLast(t *testing.T) {
	events := []TimelineEvent{
		{ID: "bad", Year: "someday", Month: "?", Date: ""},
		{ID: "good", Year: "2001", Month: "1月", Date: "1"},
	}

	SortTimeline(events)

	assert.Equal(t, "good", events[0].ID)
}

func TestSetDate(t *testing.T) {
	var e TimelineEvent
	e.SetDate(time.Date(2023, time.October, 24, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "24", e.Date)
	assert.Equal(t, "周二", e.DayOfWeek)
	assert.Equal(t, "10月", e.Month)
	assert.Equal(t, "2023", e.Year)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-05-20")
	require.NoError(t, err)
	assert.Equal(t, 20, d.Day())

	d, err = ParseDate("2024-02-29T10:11:12Z")
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())

	_, err = ParseDate("20/05/2023")
	assert.Error(t, err)
}

func TestTimelineEventPatch_Fields(t *testing.T) {
	title := "新标题"
	empty := ""
	special := false
	images := []string{"x"}

	fields := TimelineEventPatch{
		Title:     &title,
		Location:  &empty,
		IsSpecial: &special,
		Images:    &images,
	}.Fields()

	assert.Equal(t, map[string]any{
		"title":      "新标题",
		"is_special": false,
		"images":     []string{"x"},
	}, fields)
}

func TestTimelineEventMapping(t *testing.T) {
	event := TimelineEvent{Title: "t", Images: nil, Note: ""}
	db := ToTimelineEventDB(event, "u1")
	assert.Equal(t, "u1", db.UserID)
	assert.Nil(t, db.Note)
	assert.NotNil(t, db.Images)

	db.ID = primitive.NewObjectID()
	note := "hello"
	db.Note = &note
	back := ToTimelineEvent(db)
	assert.Equal(t, db.ID.Hex(), back.ID)
	assert.Equal(t, "hello", back.Note)
}

func TestRemoveString(t *testing.T) {
	out, changed := RemoveString([]string{"a", "b", "a"}, "a")
	assert.True(t, changed)
	assert.Equal(t, []string{"b"}, out)

	out, changed = RemoveString([]string{"b"}, "a")
	assert.False(t, changed)
	assert.Equal(t, []string{"b"}, out)
}
