package services

import (
	"fmt"
	"time"

	"github.com/soaringjerry/MoodMetrics/internal/models"
	"github.com/soaringjerry/MoodMetrics/internal/utils"
)

// HeatmapCell is one department × dimension risk reading. Score is risk
// oriented for every dimension: the wellbeing cell holds 100 minus the index.
type HeatmapCell struct {
	Department string    `json:"department"`
	Factor     string    `json:"factor"`
	FactorKey  Dimension `json:"factorKey"`
	Score      int       `json:"score"`
	Status     Status    `json:"status"`
}

var heatmapDimensions = []Dimension{DimWellbeing, DimBurnout, DimTension}

// Heatmap emits three cells per department in first-appearance order.
func (c *Calculator) Heatmap(records []models.ResponseRecord, locale string) []HeatmapCell {
	t := c.thresholds
	depts := c.byDepartment(records)
	cells := make([]HeatmapCell, 0, len(depts)*len(heatmapDimensions))
	for _, ds := range depts {
		for _, dim := range heatmapDimensions {
			cell := HeatmapCell{
				Department: ds.name,
				Factor:     utils.T(locale, "factor."+string(dim)),
				FactorKey:  dim,
			}
			switch dim {
			case DimWellbeing:
				if len(ds.stats.wellbeing) > 0 {
					cell.Score = 100 - ds.stats.wellbeingIndex()
				}
				cell.Status = t.ZoneStatus(cell.Score)
			case DimBurnout:
				cell.Score = PercentOf(ds.stats.burnoutHigh, ds.stats.burnoutTotal)
				cell.Status = okIfLow(t.PercentStatus(cell.Score))
			case DimTension:
				cell.Score = PercentOf(ds.stats.tensionHigh, ds.stats.tensionTotal)
				cell.Status = okIfLow(t.PercentStatus(cell.Score))
			}
			cells = append(cells, cell)
		}
	}
	return cells
}

func okIfLow(s Status) Status {
	if s == StatusLow {
		return StatusOK
	}
	return s
}

type NotificationType string

const (
	NotifyWarning NotificationType = "warning"
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
)

type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// CoverageGood is the coverage percentage from which the coverage
// notification is reported as a success.
const CoverageGood = 60

// Notifications turns the zones and coverage of a window into feed items:
// one warning per risk or critical zone, then one coverage item.
func Notifications(zones []Zone, coverage CoverageMetric, now time.Time, locale string) []Notification {
	out := make([]Notification, 0, len(zones)+1)
	for _, z := range zones {
		if z.Status == StatusOK {
			continue
		}
		out = append(out, Notification{
			ID:          fmt.Sprintf("zone-%d", len(out)+1),
			Type:        NotifyWarning,
			Title:       utils.Tf(locale, "notify.zone.title", z.Department),
			Description: utils.Tf(locale, "notify.zone.description", z.Factor, z.Score),
			CreatedAt:   now,
		})
	}

	typ, key := NotifyInfo, "notify.coverage.low"
	if coverage.Value >= CoverageGood {
		typ, key = NotifySuccess, "notify.coverage.good"
	}
	out = append(out, Notification{
		ID:          "coverage",
		Type:        typ,
		Title:       utils.Tf(locale, "notify.coverage.title", coverage.Value),
		Description: utils.Tf(locale, key, coverage.Period),
		CreatedAt:   now,
	})
	return out
}
