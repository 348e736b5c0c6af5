package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAnswersShapesAgree(t *testing.T) {
	want := []Answer{{QuestionID: "q1", Value: 4}}
	for _, raw := range []string{
		`{"answers":[{"questionId":"q1","value":4}]}`,
		`[{"questionId":"q1","value":4}]`,
		`{"q1":4}`,
	} {
		got := NormalizeAnswers(json.RawMessage(raw))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", raw, diff)
		}
	}
}

func TestNormalizeAnswersDropsBadEntries(t *testing.T) {
	raw := `[
		{"questionId":"a","value":"3"},
		{"questionId":7,"value":2},
		{"questionId":"b","value":"x"},
		{"questionId":"c","value":null},
		{"questionId":"d","value":true},
		{"questionId":"g","value":false},
		{"questionId":"e","value":0},
		{"questionId":"f","value":6},
		{"value":3},
		42
	]`
	got := NormalizeAnswers(json.RawMessage(raw))
	assert.Equal(t, []Answer{{QuestionID: "a", Value: 3}, {QuestionID: "7", Value: 2}, {QuestionID: "d", Value: 1}}, got)
}

func TestNormalizeAnswersFlatMap(t *testing.T) {
	got := NormalizeAnswers(json.RawMessage(`{"q2":"5","q1":2.5,"answers":"skip","q3":{}}`))
	assert.Equal(t, []Answer{{QuestionID: "q1", Value: 2.5}, {QuestionID: "q2", Value: 5}}, got)
}

func TestNormalizeAnswersUnrecognized(t *testing.T) {
	for _, raw := range []string{``, `null`, `"text"`, `12`, `{not json`} {
		got := NormalizeAnswers(json.RawMessage(raw))
		assert.NotNil(t, got, raw)
		assert.Empty(t, got, raw)
	}
}

func TestKeywordClassifier(t *testing.T) {
	c := DefaultKeywordClassifier()
	assert.Equal(t, DimBurnout, c.Classify("Я устал после конфликта"))
	assert.Equal(t, DimBurnout, c.Classify("Сон: насколько удаётся высыпаться"))
	assert.Equal(t, DimTension, c.Classify("Коммуникация: насколько легко договориться с коллегами"))
	assert.Equal(t, DimWellbeing, c.Classify("Общая удовлетворённость неделей"))
	assert.Equal(t, DimWellbeing, c.Classify(""))
	assert.Equal(t, DimBurnout, c.Classify("ВЫГОРАНИЕ"))
}

func TestClassifierFunc(t *testing.T) {
	calc := NewCalculator(ClassifierFunc(func(string) Dimension { return DimTension }), DefaultThresholds())
	got := calc.ClassifyRecord(record("r1", "u1", "A", `{"wb":4}`, testNow))
	require.Len(t, got, 1)
	assert.Equal(t, DimTension, got[0].Dimension)
}

func TestLoadKeywordClassifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("burnout:\n  - \" Дедлайн \"\n"), 0o600))

	c, err := LoadKeywordClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"дедлайн"}, c.Burnout)
	assert.Equal(t, DefaultKeywordClassifier().Tension, c.Tension)
	assert.Equal(t, DimBurnout, c.Classify("Дедлайны: насколько реалистичны сроки"))
	assert.Equal(t, DimWellbeing, c.Classify("Усталость"))

	_, err = LoadKeywordClassifier(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
