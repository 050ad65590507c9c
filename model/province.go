package model

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Province struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	EnName     string              `json:"enName"`
	Position   [2]float64          `json:"position"` // [longitude, latitude]
	Visited    bool                `json:"visited"`
	Date       string              `json:"date,omitempty"`
	Photos     []string            `json:"photos"`
	CityPhotos map[string][]string `json:"cityPhotos,omitempty"`
}

type ProvinceDB struct {
	ID       string    `bson:"_id"`
	Name     string    `bson:"name"`
	EnName   string    `bson:"en_name"`
	Position *GeoPoint `bson:"position,omitempty"`
}

type GeoPoint struct {
	Type        string    `bson:"type,omitempty"`
	Coordinates []float64 `bson:"coordinates,omitempty"` // [longitude, latitude]
}

// UserProvinceVisitDB asserts that a user has been to a province, optionally
// to one city of it. (user_id, province_id, city) is unique.
type UserProvinceVisitDB struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     string             `bson:"user_id"`
	ProvinceID string             `bson:"province_id"`
	City       string             `bson:"city"`
	VisitDate  string             `bson:"visit_date"`
	Photos     []string           `bson:"photos"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

func ToProvince(db ProvinceDB) Province {
	p := Province{
		ID:     db.ID,
		Name:   db.Name,
		EnName: db.EnName,
		Photos: []string{},
	}
	if db.Position != nil && len(db.Position.Coordinates) == 2 {
		p.Position = [2]float64{db.Position.Coordinates[0], db.Position.Coordinates[1]}
	}
	return p
}

func ToProvinceDB(p Province) ProvinceDB {
	return ProvinceDB{
		ID:     p.ID,
		Name:   p.Name,
		EnName: p.EnName,
		Position: &GeoPoint{
			Type:        "Point",
			Coordinates: []float64{p.Position[0], p.Position[1]},
		},
	}
}

// MergeVisits overlays visit rows onto the base province list. Rows for the same
// province have their photos concatenated in row order and grouped by city; the
// visit date comes from the last row seen for that province.
func MergeVisits(base []Province, visits []UserProvinceVisitDB) []Province {
	byProvince := make(map[string][]UserProvinceVisitDB)
	for _, v := range visits {
		byProvince[v.ProvinceID] = append(byProvince[v.ProvinceID], v)
	}

	merged := make([]Province, 0, len(base))
	for _, p := range base {
		rows, ok := byProvince[p.ID]
		if !ok {
			p.Visited = false
			p.Date = ""
			p.Photos = []string{}
			p.CityPhotos = nil
			merged = append(merged, p)
			continue
		}

		p.Visited = true
		p.Photos = []string{}
		p.CityPhotos = nil
		for _, row := range rows {
			p.Photos = append(p.Photos, row.Photos...)
			if row.City != "" {
				if p.CityPhotos == nil {
					p.CityPhotos = make(map[string][]string)
				}
				p.CityPhotos[row.City] = append(p.CityPhotos[row.City], row.Photos...)
			}
			p.Date = row.VisitDate
		}
		merged = append(merged, p)
	}
	return merged
}

// TotalProvinces is the number of provincial-level regions on the map.
const TotalProvinces = 34

type FootprintStats struct {
	Visited    int `json:"visited"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
	Level      int `json:"level"`
}

func Footprint(provinces []Province) FootprintStats {
	visited := 0
	for _, p := range provinces {
		if p.Visited {
			visited++
		}
	}
	return FootprintStats{
		Visited:    visited,
		Total:      TotalProvinces,
		Percentage: int(math.Round(float64(visited) / TotalProvinces * 100)),
		Level:      footprintLevel(visited),
	}
}

func footprintLevel(count int) int {
	switch {
	case count >= 34:
		return 6
	case count >= 26:
		return 5
	case count >= 16:
		return 4
	case count >= 9:
		return 3
	case count >= 4:
		return 2
	default:
		return 1
	}
}

var provinceSuffixes = []string{"特别行政区", "自治区", "维吾尔", "壮族", "回族", "省", "市"}

// ProvinceIDByName resolves a Chinese region name, with or without its
// administrative suffix, to a province id.
func ProvinceIDByName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, p := range baseProvinces {
		if p.Name == name {
			return p.ID, true
		}
	}
	short := name
	for _, suffix := range provinceSuffixes {
		short = strings.ReplaceAll(short, suffix, "")
	}
	for _, p := range baseProvinces {
		if p.Name == short {
			return p.ID, true
		}
	}
	return "", false
}

// BaseProvinces returns a fresh copy of the static region list.
func BaseProvinces() []Province {
	out := make([]Province, len(baseProvinces))
	for i, p := range baseProvinces {
		p.Photos = []string{}
		out[i] = p
	}
	return out
}

var baseProvinces = []Province{
	{ID: "beijing", Name: "北京", EnName: "Beijing", Position: [2]float64{116.4074, 39.9042}},
	{ID: "shanghai", Name: "上海", EnName: "Shanghai", Position: [2]float64{121.4737, 31.2304}},
	{ID: "tianjin", Name: "天津", EnName: "Tianjin", Position: [2]float64{117.2009, 39.0842}},
	{ID: "chongqing", Name: "重庆", EnName: "Chongqing", Position: [2]float64{106.5516, 29.5630}},
	{ID: "sichuan", Name: "四川", EnName: "Sichuan", Position: [2]float64{104.0668, 30.5728}},
	{ID: "guangdong", Name: "广东", EnName: "Guangdong", Position: [2]float64{113.2644, 23.1291}},
	{ID: "hebei", Name: "河北", EnName: "Hebei", Position: [2]float64{114.5149, 38.0428}},
	{ID: "shanxi", Name: "山西", EnName: "Shanxi", Position: [2]float64{112.5627, 37.8735}},
	{ID: "liaoning", Name: "辽宁", EnName: "Liaoning", Position: [2]float64{123.4315, 41.8057}},
	{ID: "jilin", Name: "吉林", EnName: "Jilin", Position: [2]float64{125.3235, 43.8170}},
	{ID: "heilongjiang", Name: "黑龙江", EnName: "Heilongjiang", Position: [2]float64{126.6616, 45.7421}},
	{ID: "jiangsu", Name: "江苏", EnName: "Jiangsu", Position: [2]float64{118.7628, 32.0603}},
	{ID: "zhejiang", Name: "浙江", EnName: "Zhejiang", Position: [2]float64{120.1551, 30.2741}},
	{ID: "anhui", Name: "安徽", EnName: "Anhui", Position: [2]float64{117.2906, 31.8669}},
	{ID: "fujian", Name: "福建", EnName: "Fujian", Position: [2]float64{119.2951, 26.0713}},
	{ID: "jiangxi", Name: "江西", EnName: "Jiangxi", Position: [2]float64{115.8579, 28.6829}},
	{ID: "shandong", Name: "山东", EnName: "Shandong", Position: [2]float64{117.1205, 36.6510}},
	{ID: "henan", Name: "河南", EnName: "Henan", Position: [2]float64{113.6253, 34.7466}},
	{ID: "hubei", Name: "湖北", EnName: "Hubei", Position: [2]float64{114.3054, 30.5928}},
	{ID: "hunan", Name: "湖南", EnName: "Hunan", Position: [2]float64{112.9388, 28.2282}},
	{ID: "hainan", Name: "海南", EnName: "Hainan", Position: [2]float64{110.1983, 20.0440}},
	{ID: "guizhou", Name: "贵州", EnName: "Guizhou", Position: [2]float64{106.6302, 26.6477}},
	{ID: "yunnan", Name: "云南", EnName: "Yunnan", Position: [2]float64{102.7100, 25.0453}},
	{ID: "shaanxi", Name: "陕西", EnName: "Shaanxi", Position: [2]float64{108.9398, 34.3416}},
	{ID: "gansu", Name: "甘肃", EnName: "Gansu", Position: [2]float64{103.8264, 36.0594}},
	{ID: "qinghai", Name: "青海", EnName: "Qinghai", Position: [2]float64{101.7782, 36.6171}},
	{ID: "taiwan", Name: "台湾", EnName: "Taiwan", Position: [2]float64{121.5091, 25.0443}},
	{ID: "neimenggu", Name: "内蒙古", EnName: "Inner Mongolia", Position: [2]float64{111.7656, 40.8175}},
	{ID: "guangxi", Name: "广西", EnName: "Guangxi", Position: [2]float64{108.3661, 22.8172}},
	{ID: "xizang", Name: "西藏", EnName: "Tibet", Position: [2]float64{91.1172, 29.6469}},
	{ID: "ningxia", Name: "宁夏", EnName: "Ningxia", Position: [2]float64{106.2309, 38.4872}},
	{ID: "xinjiang", Name: "新疆", EnName: "Xinjiang", Position: [2]float64{87.6168, 43.8256}},
	{ID: "hongkong", Name: "香港", EnName: "Hong Kong", Position: [2]float64{114.1694, 22.3193}},
	{ID: "macau", Name: "澳门", EnName: "Macau", Position: [2]float64{113.5439, 22.1987}},
}
