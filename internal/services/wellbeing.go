package services

import (
	"math"
	"time"

	"github.com/soaringjerry/MoodMetrics/internal/models"
	"github.com/soaringjerry/MoodMetrics/internal/utils"
)

// NoDepartment is the bucket for submitters without a department.
const NoDepartment = "Без отдела"

type Status string

const (
	StatusOK       Status = "ok"
	StatusLow      Status = "low"
	StatusRisk     Status = "risk"
	StatusCritical Status = "critical"
)

// Thresholds holds every cut-off used by the aggregator. The defaults are
// uncalibrated product values pending review; they are configurable so they
// can be tuned without code changes.
type Thresholds struct {
	// HighAnswer is the minimum value counted as a "high" burnout/tension answer.
	HighAnswer float64 `mapstructure:"high_answer" json:"highAnswer"`

	WellbeingOK   int `mapstructure:"wellbeing_ok" json:"wellbeingOk"`
	WellbeingRisk int `mapstructure:"wellbeing_risk" json:"wellbeingRisk"`

	// Percent metrics are low below PercentRisk and critical from PercentCritical.
	PercentRisk     int `mapstructure:"percent_risk" json:"percentRisk"`
	PercentCritical int `mapstructure:"percent_critical" json:"percentCritical"`

	ZoneRisk     int `mapstructure:"zone_risk" json:"zoneRisk"`
	ZoneCritical int `mapstructure:"zone_critical" json:"zoneCritical"`

	WellbeingWeight float64 `mapstructure:"wellbeing_weight" json:"wellbeingWeight"`
	BurnoutWeight   float64 `mapstructure:"burnout_weight" json:"burnoutWeight"`
	TensionWeight   float64 `mapstructure:"tension_weight" json:"tensionWeight"`

	RecBurnout           int `mapstructure:"rec_burnout" json:"recBurnout"`
	RecBurnoutCritical   int `mapstructure:"rec_burnout_critical" json:"recBurnoutCritical"`
	RecTension           int `mapstructure:"rec_tension" json:"recTension"`
	RecTensionCritical   int `mapstructure:"rec_tension_critical" json:"recTensionCritical"`
	RecWellbeing         int `mapstructure:"rec_wellbeing" json:"recWellbeing"`
	RecWellbeingCritical int `mapstructure:"rec_wellbeing_critical" json:"recWellbeingCritical"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		HighAnswer:           4,
		WellbeingOK:          70,
		WellbeingRisk:        55,
		PercentRisk:          20,
		PercentCritical:      40,
		ZoneRisk:             30,
		ZoneCritical:         50,
		WellbeingWeight:      0.5,
		BurnoutWeight:        0.25,
		TensionWeight:        0.25,
		RecBurnout:           30,
		RecBurnoutCritical:   45,
		RecTension:           25,
		RecTensionCritical:   40,
		RecWellbeing:         60,
		RecWellbeingCritical: 50,
	}
}

// WellbeingStatus bands a 0..100 wellbeing index.
func (t Thresholds) WellbeingStatus(score int) Status {
	switch {
	case score >= t.WellbeingOK:
		return StatusOK
	case score >= t.WellbeingRisk:
		return StatusRisk
	default:
		return StatusCritical
	}
}

// PercentStatus bands a burnout/tension percentage.
func (t Thresholds) PercentStatus(p int) Status {
	switch {
	case p < t.PercentRisk:
		return StatusLow
	case p < t.PercentCritical:
		return StatusRisk
	default:
		return StatusCritical
	}
}

// ZoneStatus bands a combined 0..100 risk score.
func (t Thresholds) ZoneStatus(score int) Status {
	switch {
	case score >= t.ZoneCritical:
		return StatusCritical
	case score >= t.ZoneRisk:
		return StatusRisk
	default:
		return StatusOK
	}
}

// ScaleTo100 maps a Likert mean in 1..5 onto 0..100.
func ScaleTo100(mean float64) int {
	return int(math.Round(clamp((mean-1)/4*100, 0, 100)))
}

// PercentOf returns round(part/total*100), or 0 when total is 0.
func PercentOf(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// dimensionStats accumulates classified values for one scope.
type dimensionStats struct {
	wellbeing    []float64
	burnoutTotal int
	burnoutHigh  int
	tensionTotal int
	tensionHigh  int
}

func (s *dimensionStats) add(dim Dimension, v, high float64) {
	switch dim {
	case DimBurnout:
		s.burnoutTotal++
		if v >= high {
			s.burnoutHigh++
		}
	case DimTension:
		s.tensionTotal++
		if v >= high {
			s.tensionHigh++
		}
	default:
		s.wellbeing = append(s.wellbeing, v)
	}
}

// wellbeingIndex is 0 when no wellbeing answers exist.
func (s *dimensionStats) wellbeingIndex() int {
	if len(s.wellbeing) == 0 {
		return 0
	}
	return ScaleTo100(mean(s.wellbeing))
}

func (s *dimensionStats) burnoutShare() float64 { return share(s.burnoutHigh, s.burnoutTotal) }
func (s *dimensionStats) tensionShare() float64 { return share(s.tensionHigh, s.tensionTotal) }

func share(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// ClassifiedAnswer is a normalized answer tagged with its dimension.
type ClassifiedAnswer struct {
	ResponseID  string
	UserID      string
	Department  string
	QuestionID  string
	Dimension   Dimension
	Value       float64
	SubmittedAt time.Time
}

// Calculator turns response snapshots into dashboard metrics. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	classifier Classifier
	thresholds Thresholds
}

// NewCalculator builds a Calculator; a nil classifier selects the default keyword sets.
func NewCalculator(classifier Classifier, thresholds Thresholds) *Calculator {
	if classifier == nil {
		classifier = DefaultKeywordClassifier()
	}
	return &Calculator{classifier: classifier, thresholds: thresholds}
}

func (c *Calculator) Thresholds() Thresholds { return c.thresholds }

func departmentOf(rec models.ResponseRecord) string {
	if rec.Department == "" {
		return NoDepartment
	}
	return rec.Department
}

// ClassifyRecord normalizes one response and tags every answer. Answers to
// questions missing from the record's question set classify on empty text.
func (c *Calculator) ClassifyRecord(rec models.ResponseRecord) []ClassifiedAnswer {
	texts := make(map[string]string, len(rec.Questions))
	for _, q := range rec.Questions {
		texts[q.ID] = q.Text
	}
	answers := NormalizeAnswers(rec.Answers)
	out := make([]ClassifiedAnswer, 0, len(answers))
	dept := departmentOf(rec)
	for _, a := range answers {
		out = append(out, ClassifiedAnswer{
			ResponseID:  rec.ResponseID,
			UserID:      rec.UserID,
			Department:  dept,
			QuestionID:  a.QuestionID,
			Dimension:   c.classifier.Classify(texts[a.QuestionID]),
			Value:       a.Value,
			SubmittedAt: rec.SubmittedAt,
		})
	}
	return out
}

// Classify flattens ClassifyRecord over a snapshot.
func (c *Calculator) Classify(records []models.ResponseRecord) []ClassifiedAnswer {
	var out []ClassifiedAnswer
	for _, rec := range records {
		out = append(out, c.ClassifyRecord(rec)...)
	}
	return out
}

func (c *Calculator) collect(records []models.ResponseRecord) *dimensionStats {
	st := &dimensionStats{}
	for _, rec := range records {
		for _, a := range c.ClassifyRecord(rec) {
			st.add(a.Dimension, a.Value, c.thresholds.HighAnswer)
		}
	}
	return st
}

type departmentStats struct {
	name  string
	stats *dimensionStats
}

// byDepartment groups records in order of first appearance. A department
// gets a bucket as soon as one of its responses is seen, even if none of its
// answers survive normalization.
func (c *Calculator) byDepartment(records []models.ResponseRecord) []*departmentStats {
	index := map[string]*departmentStats{}
	var order []*departmentStats
	for _, rec := range records {
		dept := departmentOf(rec)
		ds, ok := index[dept]
		if !ok {
			ds = &departmentStats{name: dept, stats: &dimensionStats{}}
			index[dept] = ds
			order = append(order, ds)
		}
		for _, a := range c.ClassifyRecord(rec) {
			ds.stats.add(a.Dimension, a.Value, c.thresholds.HighAnswer)
		}
	}
	return order
}

type WellbeingIndex struct {
	Overall int    `json:"overall"`
	Status  Status `json:"status"`
}

type PercentMetric struct {
	Value  int    `json:"value"`
	Status Status `json:"status"`
}

type CoverageMetric struct {
	Value  int    `json:"value"`
	Period string `json:"period"`
}

// Metrics is the headline dashboard block for one window.
type Metrics struct {
	WellbeingIndex   WellbeingIndex `json:"wellbeingIndex"`
	BurnoutRisk      PercentMetric  `json:"burnoutRisk"`
	TensionConflicts PercentMetric  `json:"tensionConflicts"`
	SurveyCoverage   CoverageMetric `json:"surveyCoverage"`
}

// Metrics aggregates a window of responses. eligible is the number of users
// coverage is measured against; respondents are counted regardless of role.
func (c *Calculator) Metrics(records []models.ResponseRecord, eligible int, period string) Metrics {
	st := c.collect(records)
	wb := st.wellbeingIndex()
	burnout := PercentOf(st.burnoutHigh, st.burnoutTotal)
	tension := PercentOf(st.tensionHigh, st.tensionTotal)

	respondents := map[string]struct{}{}
	for _, rec := range records {
		respondents[rec.UserID] = struct{}{}
	}

	return Metrics{
		WellbeingIndex:   WellbeingIndex{Overall: wb, Status: c.thresholds.WellbeingStatus(wb)},
		BurnoutRisk:      PercentMetric{Value: burnout, Status: c.thresholds.PercentStatus(burnout)},
		TensionConflicts: PercentMetric{Value: tension, Status: c.thresholds.PercentStatus(tension)},
		SurveyCoverage:   CoverageMetric{Value: PercentOf(len(respondents), eligible), Period: period},
	}
}

// DynamicsPoint is the wellbeing index of one weekly window.
type DynamicsPoint struct {
	Week  string `json:"week"`
	Value int    `json:"value"`
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DynamicsRange returns the span covered by Dynamics for the given week count.
func DynamicsRange(now time.Time, weeks int) (from, to time.Time) {
	today := startOfDay(now)
	return today.AddDate(0, 0, -7*(weeks-1)), today.AddDate(0, 0, 7)
}

// Dynamics computes the wellbeing index for weeks trailing windows, oldest
// first. Window i (weeks-1 down to 0) starts i weeks before today's midnight
// and lasts seven days, so the newest window is labelled as the current one.
func (c *Calculator) Dynamics(records []models.ResponseRecord, now time.Time, weeks int, locale string) []DynamicsPoint {
	today := startOfDay(now)
	points := make([]DynamicsPoint, 0, weeks)
	for i := weeks - 1; i >= 0; i-- {
		start := today.AddDate(0, 0, -7*i)
		end := start.AddDate(0, 0, 7)
		window := make([]models.ResponseRecord, 0)
		for _, rec := range records {
			if !rec.SubmittedAt.Before(start) && rec.SubmittedAt.Before(end) {
				window = append(window, rec)
			}
		}
		label := utils.T(locale, "dynamics.current")
		if i > 0 {
			label = utils.Tf(locale, "dynamics.week", weeks-i)
		}
		points = append(points, DynamicsPoint{Week: label, Value: c.collect(window).wellbeingIndex()})
	}
	return points
}
