package services

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Likert bounds for a single answer value.
const (
	LikertMin = 1.0
	LikertMax = 5.0
)

// Answer is the canonical form of one answered question.
type Answer struct {
	QuestionID string  `json:"questionId"`
	Value      float64 `json:"value"`
}

// NormalizeAnswers converts a stored answers payload into a flat answer list.
// Three shapes are accepted:
//
//	{"answers": [{"questionId": "q1", "value": 4}]}
//	[{"questionId": "q1", "value": 4}]
//	{"q1": 4}
//
// Entries whose value is not a finite number in [LikertMin, LikertMax] are
// dropped. Anything else yields an empty list; the function never fails.
func NormalizeAnswers(raw json.RawMessage) []Answer {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []Answer{}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return []Answer{}
	}

	switch v := doc.(type) {
	case map[string]any:
		if list, ok := v["answers"].([]any); ok {
			return answersFromList(list)
		}
		return answersFromMap(v)
	case []any:
		return answersFromList(v)
	}
	return []Answer{}
}

func answersFromList(list []any) []Answer {
	out := make([]Answer, 0, len(list))
	for _, el := range list {
		entry, ok := el.(map[string]any)
		if !ok {
			continue
		}
		qid, ok := questionID(entry["questionId"])
		if !ok {
			continue
		}
		val, ok := likertValue(entry["value"])
		if !ok {
			continue
		}
		out = append(out, Answer{QuestionID: qid, Value: val})
	}
	return out
}

func answersFromMap(m map[string]any) []Answer {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == "answers" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Answer, 0, len(keys))
	for _, k := range keys {
		val, ok := likertValue(m[k])
		if !ok {
			continue
		}
		out = append(out, Answer{QuestionID: k, Value: val})
	}
	return out
}

func questionID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, true
	case json.Number:
		if f, err := id.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return id.String(), true
	}
	return "", false
}

func likertValue(v any) (float64, bool) {
	f, ok := toNumber(v)
	if !ok {
		return 0, false
	}
	if f < LikertMin || f > LikertMax {
		return 0, false
	}
	return f, true
}

// toNumber coerces a JSON scalar. Booleans count as 1 and 0.
func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case bool:
		if n {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
