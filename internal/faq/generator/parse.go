package generator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/railzwaylabs/shopfaq/internal/faq/domain"
)

// ParseQAs reads a model reply. It accepts a bare JSON array, an object
// wrapping the array (as JSON mode forces), or an array embedded in prose.
func ParseQAs(content string, count int) ([]domain.QA, error) {
	content = strings.TrimSpace(content)

	qas, ok := decodeArray(content)
	if !ok {
		qas, ok = decodeWrapped(content)
	}
	if !ok {
		start, end := strings.Index(content, "["), strings.LastIndex(content, "]")
		if start >= 0 && end > start {
			qas, ok = decodeArray(content[start : end+1])
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array of questions in reply", domain.ErrGeneratorInvalidOutput)
	}

	qas = domain.CleanQAs(qas)
	if len(qas) == 0 {
		return nil, fmt.Errorf("%w: reply contained no usable questions", domain.ErrGeneratorInvalidOutput)
	}
	if count > 0 && len(qas) > count {
		qas = qas[:count]
	}
	return qas, nil
}

func decodeArray(s string) ([]domain.QA, bool) {
	var qas []domain.QA
	if err := json.Unmarshal([]byte(s), &qas); err != nil {
		return nil, false
	}
	return qas, true
}

func decodeWrapped(s string) ([]domain.QA, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	if raw, ok := obj["faqs"]; ok {
		return decodeArray(string(raw))
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if qas, ok := decodeArray(string(obj[k])); ok {
			return qas, true
		}
	}
	return nil, false
}
