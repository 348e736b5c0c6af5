package services

import (
	"math"
	"sort"

	"github.com/soaringjerry/MoodMetrics/internal/models"
	"github.com/soaringjerry/MoodMetrics/internal/utils"
)

// Zone is a department's combined risk. Higher Score is worse.
type Zone struct {
	Department string    `json:"department"`
	Factor     string    `json:"factor"`
	FactorKey  Dimension `json:"factorKey"`
	Score      int       `json:"score"`
	Status     Status    `json:"status"`
}

// zoneOf scores one department. Burnout and tension enter the weighted sum
// unrounded; the dominant factor stays wellbeing unless another factor is
// strictly greater.
func (c *Calculator) zoneOf(ds *departmentStats, locale string) Zone {
	t := c.thresholds
	wb := ds.stats.wellbeingIndex()
	burnout := ds.stats.burnoutShare()
	tension := ds.stats.tensionShare()

	total := math.Round(t.WellbeingWeight*float64(100-wb) + t.BurnoutWeight*burnout + t.TensionWeight*tension)
	score := int(clamp(total, 0, 100))

	factor, worst := DimWellbeing, float64(100-wb)
	if burnout > worst {
		factor, worst = DimBurnout, burnout
	}
	if tension > worst {
		factor = DimTension
	}

	return Zone{
		Department: ds.name,
		Factor:     utils.T(locale, "factor."+string(factor)),
		FactorKey:  factor,
		Score:      score,
		Status:     t.ZoneStatus(score),
	}
}

// Zones ranks every department seen in records, worst first. Departments
// with equal scores keep their first-appearance order.
func (c *Calculator) Zones(records []models.ResponseRecord, locale string) []Zone {
	depts := c.byDepartment(records)
	zones := make([]Zone, 0, len(depts))
	for _, ds := range depts {
		zones = append(zones, c.zoneOf(ds, locale))
	}
	sort.SliceStable(zones, func(i, j int) bool { return zones[i].Score > zones[j].Score })
	return zones
}

// ProblemZones returns at most limit zones from Zones.
func (c *Calculator) ProblemZones(records []models.ResponseRecord, limit int, locale string) []Zone {
	return firstN(c.Zones(records, locale), limit)
}

func firstN[T any](xs []T, n int) []T {
	if n >= 0 && len(xs) > n {
		return xs[:n]
	}
	return xs
}
