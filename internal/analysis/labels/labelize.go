// Package labels attaches ground-truth user places to stay regions.
package labels

import (
	"github.com/jengzang/personal-context-builder/internal/models"
)

// Labelize labels every region with the first place, in input order, that
// falls inside its box. Regions no place falls into are returned as unlabelled.
// Both results keep the order of regions.
func Labelize(regions []models.StayRegion, places []models.UserPlace) ([]models.LabelledStayRegion, []models.StayRegion) {
	var labelled []models.LabelledStayRegion
	var unlabelled []models.StayRegion
	for _, region := range regions {
		if label, ok := LabelFor(region, places); ok {
			labelled = append(labelled, models.NewLabelledStayRegion(region, label))
			continue
		}
		unlabelled = append(unlabelled, region)
	}
	return labelled, unlabelled
}

// LabelFor returns the label of the first place inside region.
func LabelFor(region models.StayRegion, places []models.UserPlace) (string, bool) {
	for _, place := range places {
		if region.Contains(place.GeoPoint) {
			return place.Label, true
		}
	}
	return "", false
}
