package routine

import (
	"github.com/jengzang/personal-context-builder/internal/mapping"
	"github.com/jengzang/personal-context-builder/internal/models"
)

// Classifier encodes a slot location against the regions of one user.
type Classifier struct {
	labelled   []models.LabelledStayRegion
	unlabelled []models.StayRegion
	table      *mapping.Table
}

// NewClassifier keeps references to the regions; they must not be mutated afterwards.
func NewClassifier(labelled []models.LabelledStayRegion, unlabelled []models.StayRegion, table *mapping.Table) *Classifier {
	return &Classifier{
		labelled:   labelled,
		unlabelled: unlabelled,
		table:      table,
	}
}

// Table returns the code table used by the classifier.
func (c *Classifier) Table() *mapping.Table {
	return c.table
}

// Classify returns the code of loc: no_data for a missing slot, the label
// code of the first labelled region containing it, unknown_region for an
// unlabelled region, unknown otherwise.
func (c *Classifier) Classify(loc models.LocationPoint) (int, models.SlotClass) {
	if loc.IsMissing() {
		return c.table.MustCode(mapping.NoData), models.SlotNoData
	}

	for _, region := range c.labelled {
		if !region.Contains(loc.GeoPoint) {
			continue
		}
		code, mapped := c.table.LabelCode(region.Label)
		if !mapped {
			return code, models.SlotUnmappedLabelledRegion
		}
		return code, models.SlotLabelledRegion
	}

	for _, region := range c.unlabelled {
		if region.Contains(loc.GeoPoint) {
			return c.table.MustCode(mapping.UnknownRegion), models.SlotUnlabelledRegion
		}
	}

	return c.table.MustCode(mapping.Unknown), models.SlotUnknown
}
