package core

// convert.go provides tolerant conversions for spreadsheet cell values.
//
// Cells arrive as strings from CSV, as strings or numbers from XLSX, and as
// float64 or json.Number from JSON request bodies. These helpers handle the
// messy reality of that input:
//   - Excel formula prefixes (="value") and stray quotes
//   - Thousands separators in numbers
//   - Lists written as "1,2,3", "[1,2,3]" or ranges such as "1-3"
//
// Parsers report what they could not understand instead of failing, so
// validators can turn the leftovers into issues.

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// rangeRegex matches an inclusive integer range token such as "1-3".
var rangeRegex = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// CellString renders any cell value as trimmed text. Whole floats print
// without a fractional part.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return FormatNumber(t)
	case float32:
		return FormatNumber(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, CellString(e))
		}
		return strings.Join(parts, ",")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// IsBlank reports whether a cell holds no meaningful value.
func IsBlank(v any) bool {
	return CellString(v) == ""
}

// CellNumber converts a cell to float64. Strings are cleaned of formula
// prefixes, quotes and thousands separators first.
func CellNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(CleanCell(t), ",", "")
		if !numericRegex.MatchString(s) {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// FormatNumber prints f without trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NumberLike returns f in the same representation as original: a float64
// when the original cell was numeric, text otherwise.
func NumberLike(original any, f float64) any {
	switch original.(type) {
	case float64, float32, int, int64, json.Number:
		return f
	}
	return FormatNumber(f)
}

// StringList is the result of splitting a comma-separated text list.
type StringList struct {
	Items        []string // Trimmed, non-empty entries with duplicates removed
	EmptyEntries int      // Entries that were blank, as in "a,,b"
	Duplicates   []string // Repeated entries, first spelling kept
	Bracketed    bool     // Input was wrapped in [ ]
}

// Clean reports whether the list needed no normalization.
func (l StringList) Clean() bool {
	return l.EmptyEntries == 0 && len(l.Duplicates) == 0
}

// String renders the normalized list in the original bracket style.
func (l StringList) String() string {
	joined := strings.Join(l.Items, ",")
	if l.Bracketed {
		return "[" + joined + "]"
	}
	return joined
}

// SplitList parses a text list. JSON string arrays and bracketed lists are
// accepted; surrounding quotes on entries are removed. Entries differing
// only in case are duplicates.
func SplitList(v any) StringList {
	return splitList(v, true)
}

// SplitIDList is SplitList for identifier lists, where case is significant
// and only exact repeats are duplicates.
func SplitIDList(v any) StringList {
	return splitList(v, false)
}

func splitList(v any, fold bool) StringList {
	var out StringList
	var raw []string

	switch t := v.(type) {
	case nil:
		return out
	case []any:
		out.Bracketed = true
		for _, e := range t {
			raw = append(raw, CellString(e))
		}
	default:
		s := CellString(v)
		if s == "" {
			return out
		}
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			out.Bracketed = true
			s = strings.TrimSpace(s[1 : len(s)-1])
			if s == "" {
				return out
			}
		}
		raw = strings.Split(s, ",")
	}

	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		item := strings.Trim(strings.TrimSpace(r), `"'`)
		if item == "" {
			out.EmptyEntries++
			continue
		}
		key := item
		if fold {
			key = strings.ToLower(item)
		}
		if seen[key] {
			out.Duplicates = append(out.Duplicates, item)
			continue
		}
		seen[key] = true
		out.Items = append(out.Items, item)
	}
	return out
}

// ListItems is SplitList(v).Items.
func ListItems(v any) []string {
	return SplitList(v).Items
}

// NumberList is the result of parsing a list of integers.
type NumberList struct {
	Values       []int    // Parsed values in first-seen order, duplicates removed
	Invalid      []string // Tokens that are neither integers nor ranges
	EmptyEntries int      // Blank entries, as in "1,,2"
	Duplicates   []int    // Values that appeared more than once
	Unbalanced   bool     // Opening or closing bracket without its partner
	Bracketed    bool     // Input was wrapped in [ ]
	Scalar       bool     // Input was a single bare number
}

// Clean reports whether the list parsed without any normalization.
func (l NumberList) Clean() bool {
	return len(l.Invalid) == 0 && l.EmptyEntries == 0 && len(l.Duplicates) == 0 && !l.Unbalanced
}

// Fixable reports whether every token was understood, so the list can be
// rewritten without losing information.
func (l NumberList) Fixable() bool {
	return len(l.Invalid) == 0
}

// String renders the normalized list. Bracketed input stays bracketed.
func (l NumberList) String() string {
	return FormatNumberList(l.Values, l.Bracketed || l.Unbalanced)
}

// FormatNumberList renders values as "1,2,3" or "[1,2,3]".
func FormatNumberList(values []int, bracketed bool) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	joined := strings.Join(parts, ",")
	if bracketed {
		return "[" + joined + "]"
	}
	return joined
}

// MaxPhase is the largest phase or slot number a list may name. Larger
// values, and ranges reaching past it, are reported as Invalid.
const MaxPhase = 1000

// ParseNumberList parses "[1,2]", "1,2", "1-3" and bare numbers. Ranges are
// inclusive and expand in ascending order.
func ParseNumberList(v any) NumberList {
	var out NumberList
	seen := make(map[int]bool)
	add := func(n int) {
		if seen[n] {
			out.Duplicates = append(out.Duplicates, n)
			return
		}
		seen[n] = true
		out.Values = append(out.Values, n)
	}

	switch t := v.(type) {
	case nil:
		return out
	case []any:
		out.Bracketed = true
		for _, e := range t {
			f, ok := CellNumber(e)
			if !ok || f != math.Trunc(f) || f > MaxPhase {
				out.Invalid = append(out.Invalid, CellString(e))
				continue
			}
			add(int(f))
		}
		return out
	case float64, float32, int, int64, json.Number:
		f, _ := CellNumber(t)
		out.Scalar = true
		if f != math.Trunc(f) || f > MaxPhase {
			out.Invalid = append(out.Invalid, FormatNumber(f))
			return out
		}
		add(int(f))
		return out
	}

	s := CellString(v)
	if s == "" {
		return out
	}
	open, closed := strings.HasPrefix(s, "["), strings.HasSuffix(s, "]")
	switch {
	case open && closed:
		out.Bracketed = true
	case open || closed:
		out.Unbalanced = true
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"))
	if s == "" {
		return out
	}

	tokens := strings.Split(s, ",")
	out.Scalar = len(tokens) == 1 && !out.Bracketed && !out.Unbalanced && !rangeRegex.MatchString(strings.TrimSpace(tokens[0]))
	for _, tok := range tokens {
		tok = strings.Trim(strings.TrimSpace(tok), `"'`)
		if tok == "" {
			out.EmptyEntries++
			continue
		}
		if m := rangeRegex.FindStringSubmatch(tok); m != nil {
			lo, _ := strconv.Atoi(m[1])
			hi, _ := strconv.Atoi(m[2])
			if lo > hi || hi > MaxPhase {
				out.Invalid = append(out.Invalid, tok)
				continue
			}
			for n := lo; n <= hi; n++ {
				add(n)
			}
			continue
		}
		f, ok := CellNumber(tok)
		if !ok || f != math.Trunc(f) || f > MaxPhase {
			out.Invalid = append(out.Invalid, tok)
			continue
		}
		add(int(f))
	}
	return out
}

// SlotCount interprets an AvailableSlots cell. A single bare number is a
// count of slots; a list counts its distinct entries.
func SlotCount(v any) (int, bool) {
	if IsBlank(v) {
		return 0, false
	}
	l := ParseNumberList(v)
	if len(l.Invalid) > 0 {
		return 0, false
	}
	if l.Scalar && len(l.Values) == 1 {
		return l.Values[0], true
	}
	return len(l.Values), true
}

// SlotPhases interprets an AvailableSlots cell as the phases a worker is
// available in. A bare count n covers phases 1 through n, capped at
// MaxPhase.
func SlotPhases(v any) []int {
	l := ParseNumberList(v)
	if l.Scalar && len(l.Values) == 1 {
		n := min(l.Values[0], MaxPhase)
		phases := make([]int, 0, max(n, 0))
		for p := 1; p <= n; p++ {
			phases = append(phases, p)
		}
		return phases
	}
	return l.Values
}
