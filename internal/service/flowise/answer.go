package flowise

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

// AnswerFields lists the response paths tried, in order, for the bot's reply.
var AnswerFields = [][]string{
	{"text"},
	{"answer"},
	{"response"},
	{"output"},
	{"result"},
	{"message"},
	{"data", "text"},
}

// DisplayText turns a prediction response body into the text shown to the
// visitor. Non-JSON bodies are used verbatim, as are JSON bodies where none
// of the AnswerFields hold a truthy value.
func DisplayText(raw []byte) string {
	if answer, ok := ExtractAnswer(raw); ok {
		return answer
	}
	return string(raw)
}

// ExtractAnswer returns the first truthy value among AnswerFields.
func ExtractAnswer(raw []byte) (string, bool) {
	if !json.Valid(raw) {
		return "", false
	}
	for _, path := range AnswerFields {
		value, dataType, ok := lastValue(raw, path...)
		if !ok {
			continue
		}
		if text, ok := truthy(value, dataType); ok {
			return text, true
		}
	}
	return "", false
}

// lastValue resolves path inside nested objects. When a key repeats, the
// last occurrence wins, as it does for JSON.parse.
func lastValue(data []byte, path ...string) ([]byte, jsonparser.ValueType, bool) {
	var (
		value    []byte
		dataType jsonparser.ValueType
		found    bool
	)
	err := jsonparser.ObjectEach(data, func(key, v []byte, t jsonparser.ValueType, _ int) error {
		if string(key) == path[0] {
			value, dataType, found = v, t, true
		}
		return nil
	})
	if err != nil || !found {
		return nil, jsonparser.NotExist, false
	}
	if len(path) == 1 {
		return value, dataType, true
	}
	if dataType != jsonparser.Object {
		return nil, jsonparser.NotExist, false
	}
	return lastValue(value, path[1:]...)
}

// truthy mirrors JavaScript truthiness for one JSON value and renders it.
func truthy(value []byte, dataType jsonparser.ValueType) (string, bool) {
	switch dataType {
	case jsonparser.String:
		text, err := jsonparser.ParseString(value)
		if err != nil || text == "" {
			return "", false
		}
		return text, true
	case jsonparser.Number:
		n, err := strconv.ParseFloat(string(value), 64)
		if err != nil || n == 0 {
			return "", false
		}
		return formatNumber(n), true
	case jsonparser.Boolean:
		if string(value) != "true" {
			return "", false
		}
		return "true", true
	case jsonparser.Object, jsonparser.Array:
		var compact bytes.Buffer
		if err := json.Compact(&compact, value); err != nil {
			return string(value), true
		}
		return compact.String(), true
	default:
		return "", false
	}
}

// formatNumber renders n the way JavaScript's Number#toString does:
// positional between 1e-7 and 1e21, exponent form outside.
func formatNumber(n float64) string {
	abs := math.Abs(n)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(n, 'e', -1, 64)
		s = strings.Replace(s, "e-0", "e-", 1)
		return strings.Replace(s, "e+0", "e+", 1)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
