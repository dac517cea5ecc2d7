package qdrant

import (
	"fmt"
	"sort"
	"strings"
)

// translateFilter converts the metadata filter dialect used by callers
// ({"topic": "go"}, {"topic": {"$in": [...]}}, {"$and": [...]}) into Qdrant
// "must" conditions. Only conjunctive filters are supported.
func translateFilter(filter map[string]any) ([]any, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var must []any
	for _, key := range keys {
		value := filter[key]
		if key == "$and" {
			items, ok := value.([]any)
			if !ok {
				if typed, ok2 := value.([]map[string]any); ok2 {
					for _, m := range typed {
						items = append(items, m)
					}
				} else {
					return nil, opErr("filter", OperationErrorValidation, "$and expects an array of objects", nil)
				}
			}
			for _, item := range items {
				sub, ok := item.(map[string]any)
				if !ok {
					return nil, opErr("filter", OperationErrorValidation, "$and expects an array of objects", nil)
				}
				conds, err := translateFilter(sub)
				if err != nil {
					return nil, err
				}
				must = append(must, conds...)
			}
			continue
		}
		if strings.HasPrefix(key, "$") {
			return nil, opErr("filter", OperationErrorUnsupportedFilter, fmt.Sprintf("operator %s is not supported", key), nil)
		}
		cond, err := fieldCondition(key, value)
		if err != nil {
			return nil, err
		}
		must = append(must, cond)
	}
	return must, nil
}

func fieldCondition(key string, value any) (map[string]any, error) {
	ops, isOps := value.(map[string]any)
	if !isOps {
		return matchCondition(key, value), nil
	}
	if len(ops) != 1 {
		return nil, opErr("filter", OperationErrorUnsupportedFilter, fmt.Sprintf("field %s: expected exactly one operator", key), nil)
	}
	for op, arg := range ops {
		switch op {
		case "$eq":
			return matchCondition(key, arg), nil
		case "$in":
			return map[string]any{"key": key, "match": map[string]any{"any": arg}}, nil
		default:
			return nil, opErr("filter", OperationErrorUnsupportedFilter, fmt.Sprintf("field %s: operator %s is not supported", key, op), nil)
		}
	}
	return nil, nil
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{"key": key, "match": map[string]any{"value": value}}
}
