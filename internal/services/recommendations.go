package services

import (
	"sort"

	"github.com/soaringjerry/MoodMetrics/internal/models"
	"github.com/soaringjerry/MoodMetrics/internal/utils"
)

type Recommendation struct {
	Department string    `json:"department"`
	Kind       Dimension `json:"kind"`
	Issue      string    `json:"issue"`
	Action     string    `json:"action"`
	Status     Status    `json:"status"`
}

func recommendation(dept string, kind Dimension, critical bool, locale string) Recommendation {
	key := "rec." + string(kind)
	action := utils.T(locale, key+".action")
	status := StatusRisk
	if critical {
		action = utils.T(locale, key+".action.critical")
		status = StatusCritical
	}
	return Recommendation{
		Department: dept,
		Kind:       kind,
		Issue:      utils.T(locale, key+".issue"),
		Action:     action,
		Status:     status,
	}
}

// Recommendations applies the per-department rules independently, so one
// department may yield up to three entries. Critical entries come first;
// otherwise department and rule order is kept.
func (c *Calculator) Recommendations(records []models.ResponseRecord, locale string) []Recommendation {
	t := c.thresholds
	var recs []Recommendation
	for _, ds := range c.byDepartment(records) {
		wb := ds.stats.wellbeingIndex()
		burnout := PercentOf(ds.stats.burnoutHigh, ds.stats.burnoutTotal)
		tension := PercentOf(ds.stats.tensionHigh, ds.stats.tensionTotal)

		if burnout >= t.RecBurnout {
			recs = append(recs, recommendation(ds.name, DimBurnout, burnout >= t.RecBurnoutCritical, locale))
		}
		if tension >= t.RecTension {
			recs = append(recs, recommendation(ds.name, DimTension, tension >= t.RecTensionCritical, locale))
		}
		// A zero index means "no wellbeing data", not a bad score.
		if wb != 0 && wb < t.RecWellbeing {
			recs = append(recs, recommendation(ds.name, DimWellbeing, wb < t.RecWellbeingCritical, locale))
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Status == StatusCritical && recs[j].Status != StatusCritical
	})
	if recs == nil {
		recs = []Recommendation{}
	}
	return recs
}

// TopRecommendations returns at most limit entries from Recommendations.
func (c *Calculator) TopRecommendations(records []models.ResponseRecord, limit int, locale string) []Recommendation {
	return firstN(c.Recommendations(records, locale), limit)
}
