package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DiscoveryType string

const (
	DiscoveryFood  DiscoveryType = "food"
	DiscoveryGoods DiscoveryType = "goods"
	DiscoveryShop  DiscoveryType = "shop"
	DiscoveryFun   DiscoveryType = "fun"
)

var discoveryLabels = map[DiscoveryType]string{
	DiscoveryFood:  "美食",
	DiscoveryGoods: "好物",
	DiscoveryShop:  "好店",
	DiscoveryFun:   "好玩",
}

func (t DiscoveryType) Valid() bool {
	_, ok := discoveryLabels[t]
	return ok
}

// Label is the display name used when a published item is echoed onto the
// timeline.
func (t DiscoveryType) Label() string {
	return discoveryLabels[t]
}

// DiscoveryItem is a recommendation card: somewhere to eat, something to buy,
// a shop or an outing.
type DiscoveryItem struct {
	ID       string        `json:"id"`
	Image    string        `json:"image"`
	Title    string        `json:"title"`
	Location string        `json:"location"`
	Type     DiscoveryType `json:"type"`
	Date     string        `json:"date"`
	Checked  bool          `json:"checked"`
	TopBadge bool          `json:"topBadge,omitempty"`
}

type DiscoveryItemDB struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Image     string             `bson:"image"`
	Title     string             `bson:"title"`
	Location  string             `bson:"location"`
	Type      DiscoveryType      `bson:"type"`
	Date      string             `bson:"date"`
	Checked   bool               `bson:"checked"`
	TopBadge  bool               `bson:"top_badge"`
	CreatedAt time.Time          `bson:"created_at"`
}

type DiscoveryItemPatch struct {
	Image    *string        `json:"image,omitempty"`
	Title    *string        `json:"title,omitempty"`
	Location *string        `json:"location,omitempty"`
	Type     *DiscoveryType `json:"type,omitempty"`
	Date     *string        `json:"date,omitempty"`
	Checked  *bool          `json:"checked,omitempty"`
	TopBadge *bool          `json:"topBadge,omitempty"`
}

func ToDiscoveryItem(db DiscoveryItemDB) DiscoveryItem {
	return DiscoveryItem{
		ID:       db.ID.Hex(),
		Image:    db.Image,
		Title:    db.Title,
		Location: db.Location,
		Type:     db.Type,
		Date:     db.Date,
		Checked:  db.Checked,
		TopBadge: db.TopBadge,
	}
}

func ToDiscoveryItemDB(item DiscoveryItem, userID string) DiscoveryItemDB {
	return DiscoveryItemDB{
		UserID:   userID,
		Image:    item.Image,
		Title:    item.Title,
		Location: item.Location,
		Type:     item.Type,
		Date:     item.Date,
		Checked:  item.Checked,
		TopBadge: item.TopBadge,
	}
}

func (p DiscoveryItemPatch) Fields() map[string]any {
	fields := map[string]any{}
	setString := func(column string, v *string) {
		if v != nil && *v != "" {
			fields[column] = *v
		}
	}
	setString("image", p.Image)
	setString("title", p.Title)
	setString("location", p.Location)
	setString("date", p.Date)
	if p.Type != nil && *p.Type != "" {
		fields["type"] = *p.Type
	}
	if p.Checked != nil {
		fields["checked"] = *p.Checked
	}
	if p.TopBadge != nil {
		fields["top_badge"] = *p.TopBadge
	}
	return fields
}
