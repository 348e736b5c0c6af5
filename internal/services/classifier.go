package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dimension is the semantic axis a question measures.
type Dimension string

const (
	DimWellbeing Dimension = "wellbeing"
	DimBurnout   Dimension = "burnout"
	DimTension   Dimension = "tension"
)

// Classifier maps a question's text to exactly one dimension.
type Classifier interface {
	Classify(text string) Dimension
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(text string) Dimension

func (f ClassifierFunc) Classify(text string) Dimension { return f(text) }

var (
	defaultBurnoutKeywords = []string{
		"устал", "выгор", "перегруз", "нагруз", "сон", "истощ",
		"переутом", "восстанов", "нет сил", "эмоцион",
	}
	defaultTensionKeywords = []string{
		"конфликт", "напряж", "отношен", "команд", "коммуник", "поддержк",
		"спор", "ссора", "токс", "давлен", "агресс",
	}
)

// KeywordClassifier tags a question by substring match on its lower-cased
// text. Burnout keywords are checked before tension keywords; a text matching
// neither is wellbeing. Mis-tagged questions are a known limitation.
type KeywordClassifier struct {
	Burnout []string `yaml:"burnout"`
	Tension []string `yaml:"tension"`
}

// DefaultKeywordClassifier returns the built-in Russian keyword sets.
func DefaultKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		Burnout: append([]string(nil), defaultBurnoutKeywords...),
		Tension: append([]string(nil), defaultTensionKeywords...),
	}
}

// LoadKeywordClassifier reads keyword sets from a YAML file:
//
//	burnout: [устал, выгор]
//	tension: [конфликт]
//
// A set missing from the file keeps its built-in default.
func LoadKeywordClassifier(path string) (*KeywordClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file %s: %w", path, err)
	}
	var kc KeywordClassifier
	if err := yaml.Unmarshal(data, &kc); err != nil {
		return nil, fmt.Errorf("parse keywords file %s: %w", path, err)
	}
	def := DefaultKeywordClassifier()
	if len(kc.Burnout) == 0 {
		kc.Burnout = def.Burnout
	}
	if len(kc.Tension) == 0 {
		kc.Tension = def.Tension
	}
	kc.Burnout = lowerAll(kc.Burnout)
	kc.Tension = lowerAll(kc.Tension)
	return &kc, nil
}

func (k *KeywordClassifier) Classify(text string) Dimension {
	t := strings.ToLower(text)
	if containsAny(t, k.Burnout) {
		return DimBurnout
	}
	if containsAny(t, k.Tension) {
		return DimTension
	}
	return DimWellbeing
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
