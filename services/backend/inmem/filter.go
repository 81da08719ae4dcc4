package inmembackend

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/academia/portal/core/query"
)

// matchWhere reports whether rec satisfies every condition of where.
func matchWhere(rec query.Record, where query.Where) bool {
	for field, cond := range where {
		if field == "$or" {
			if !matchOr(rec, cond) {
				return false
			}
			continue
		}
		if !matchCondition(rec[field], cond) {
			return false
		}
	}
	return true
}

func matchOr(rec query.Record, alternatives interface{}) bool {
	for _, alt := range asSlice(alternatives) {
		if w, ok := asMap(alt); ok && matchWhere(rec, w) {
			return true
		}
	}
	return false
}

func matchCondition(value, cond interface{}) bool {
	ops, ok := asMap(cond)
	if !ok {
		return compare(value, cond) == 0
	}
	for op, arg := range ops {
		switch op {
		case "$like":
			if !like(value, arg, false) {
				return false
			}
		case "$iLike":
			if !like(value, arg, true) {
				return false
			}
		case "$ne":
			if compare(value, arg) == 0 {
				return false
			}
		case "$gte":
			if compare(value, arg) < 0 {
				return false
			}
		case "$lte":
			if compare(value, arg) > 0 {
				return false
			}
		case "$between":
			bounds := asSlice(arg)
			if len(bounds) != 2 || compare(value, bounds[0]) < 0 || compare(value, bounds[1]) > 0 {
				return false
			}
		case "$in":
			found := false
			for _, v := range asSlice(arg) {
				if compare(value, v) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "$or":
			matched := false
			for _, alt := range asSlice(arg) {
				if matchCondition(value, alt) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// like implements SQL LIKE with % and _ wildcards.
func like(value, pattern interface{}, insensitive bool) bool {
	s, ok := value.(string)
	p, ok2 := pattern.(string)
	if !ok || !ok2 {
		return false
	}
	var b strings.Builder
	b.WriteString("^")
	if insensitive {
		b.WriteString("(?i)")
	}
	for _, r := range p {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// compare orders numbers numerically and everything else by its string form.
func compare(a, b interface{}) int {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	return strings.Compare(sa, sb)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case query.Condition:
		return m, true
	case query.Where:
		return m, true
	case map[string]interface{}:
		return m, true
	}
	return nil, false
}

func asSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case []interface{}:
		return s
	case []query.Where:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []query.Condition:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	}
	return nil
}
