package routing

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/alertrouter/internal/models"
)

const (
	businessDayStart = 9
	businessDayEnd   = 17
)

// rulePasses evaluates a rule's time windows and then its conditions map, in that order.
func rulePasses(rule *models.SeverityRoutingRule, alert *models.Alert, at time.Time, loc *time.Location) bool {
	local := at.In(loc)

	if rule.BusinessHoursOnly && !isBusinessHours(local) {
		return false
	}
	if !rule.WeekendEscalation && isWeekend(local) {
		return false
	}
	return matchConditions(rule.Conditions, alert)
}

func isWeekend(t time.Time) bool {
	day := t.Weekday()
	return day == time.Saturday || day == time.Sunday
}

func isBusinessHours(t time.Time) bool {
	if isWeekend(t) {
		return false
	}
	return t.Hour() >= businessDayStart && t.Hour() < businessDayEnd
}

// matchConditions applies every recognized key as a conjunction. Unknown keys are ignored.
func matchConditions(conds map[string]any, alert *models.Alert) bool {
	if len(conds) == 0 {
		return true
	}

	if want, ok := conds["metric_name"]; ok {
		name, isString := want.(string)
		if !isString || name != alert.MetricName {
			return false
		}
	}

	value := 0.0
	if alert.MetricValue != nil {
		value = *alert.MetricValue
	}
	if raw, ok := conds["metric_value_min"]; ok {
		lo, isNum := toFloat(raw)
		if !isNum || value < lo {
			return false
		}
	}
	if raw, ok := conds["metric_value_max"]; ok {
		hi, isNum := toFloat(raw)
		if !isNum || value > hi {
			return false
		}
	}

	if raw, ok := conds["required_tags"]; ok {
		tags := alert.TagMap()
		keys, isList := toStrings(raw)
		if !isList {
			return false
		}
		for _, k := range keys {
			if _, present := tags[k]; !present {
				return false
			}
		}
	}

	if raw, ok := conds["context_filters"]; ok {
		filters, isMap := raw.(map[string]any)
		if !isMap {
			return false
		}
		for k, want := range filters {
			got, present := alert.Context[k]
			if !present || !valuesEqual(got, want) {
				return false
			}
		}
	}

	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toStrings(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}
