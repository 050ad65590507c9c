package model

import "fmt"

// Detail is what the detail view shows for a timeline event or a discovery
// item. Only TimelineDetail and DiscoveryDetail implement it.
type Detail interface {
	Kind() DetailKind
	detail()
}

type DetailKind string

const (
	DetailTimeline  DetailKind = "timeline"
	DetailDiscovery DetailKind = "discovery"
)

func ParseDetailKind(s string) (DetailKind, error) {
	switch DetailKind(s) {
	case DetailTimeline, DetailDiscovery:
		return DetailKind(s), nil
	}
	return "", fmt.Errorf("unknown detail kind %q", s)
}

type TimelineDetail struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Location  string   `json:"location"`
	Date      string   `json:"date"`
	DayOfWeek string   `json:"dayOfWeek"`
	Month     string   `json:"month"`
	Year      string   `json:"year"`
	Images    []string `json:"images"`
	Note      string   `json:"note,omitempty"`
	IsSpecial bool     `json:"isSpecial"`
}

type DiscoveryDetail struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Location string        `json:"location"`
	Image    string        `json:"image"`
	Type     DiscoveryType `json:"type"`
	Label    string        `json:"label"`
	Date     string        `json:"date"`
	Checked  bool          `json:"checked"`
}

func (TimelineDetail) Kind() DetailKind  { return DetailTimeline }
func (DiscoveryDetail) Kind() DetailKind { return DetailDiscovery }
func (TimelineDetail) detail()           {}
func (DiscoveryDetail) detail()          {}

func (e TimelineEvent) Detail() TimelineDetail {
	return TimelineDetail{
		ID:        e.ID,
		Title:     e.Title,
		Location:  e.Location,
		Date:      e.Date,
		DayOfWeek: e.DayOfWeek,
		Month:     e.Month,
		Year:      e.Year,
		Images:    e.Images,
		Note:      e.Note,
		IsSpecial: e.IsSpecial,
	}
}

func (d DiscoveryItem) Detail() DiscoveryDetail {
	return DiscoveryDetail{
		ID:       d.ID,
		Title:    d.Title,
		Location: d.Location,
		Image:    d.Image,
		Type:     d.Type,
		Label:    d.Type.Label(),
		Date:     d.Date,
		Checked:  d.Checked,
	}
}
