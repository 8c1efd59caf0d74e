package kitchen

import (
	"dinein-backend/internal/apperr"
	"dinein-backend/internal/models"
)

// Station is a kitchen sub-queue partitioned by dish category.
type Station string

const (
	StationCold Station = "cold"
	StationHot  Station = "hot"
	StationAll  Station = "all"
)

var stationCategories = map[Station][]models.DishCategory{
	StationCold: {models.CategoryCold, models.CategoryBeverage},
	StationHot:  {models.CategoryHot, models.CategorySoup, models.CategoryStaple},
	StationAll:  nil,
}

// ParseStation accepts cold, hot or all. Empty means all.
func ParseStation(s string) (Station, error) {
	if s == "" {
		return StationAll, nil
	}
	st := Station(s)
	if _, ok := stationCategories[st]; !ok {
		return "", apperr.Validation("unknown station %q, use cold, hot or all", s)
	}
	return st, nil
}

// Categories lists the dish categories the station cooks, nil for all.
func (s Station) Categories() []models.DishCategory {
	return stationCategories[s]
}
