package parse

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// DaysOfWeek decodes a weekday list stored as JSON. It accepts a JSON array of
// integers (or numeric strings), a JSON string holding such an array, or a
// comma separated string. Values outside 0-6 are dropped and duplicates removed.
// The second return value is false when nothing usable was found.
func DaysOfWeek(raw []byte) ([]int, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, false
	}

	var str string
	if err := json.Unmarshal([]byte(s), &str); err == nil {
		s = strings.TrimSpace(str)
	}

	var values []json.RawMessage
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		s = strings.Trim(s, "[]")
		for _, part := range strings.Split(s, ",") {
			values = append(values, json.RawMessage(strings.TrimSpace(part)))
		}
	}

	seen := make(map[int]struct{}, 7)
	for _, v := range values {
		n, ok := weekday(v)
		if !ok {
			continue
		}
		seen[n] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, false
	}

	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days, true
}

func weekday(v json.RawMessage) (int, bool) {
	t := strings.Trim(strings.TrimSpace(string(v)), `"`)
	if t == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	n := int(f)
	if n < 0 || n > 6 {
		return 0, false
	}
	return n, true
}
