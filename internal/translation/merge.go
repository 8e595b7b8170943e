package translation

import "strings"

// MergePatch overlays translated values on source. The result keeps the
// shape of source: keys the translation adds are ignored, and a missing or
// empty translated value leaves the source value in place. Maps merge by
// key and lists merge by position.
func MergePatch(source, translated map[string]any) map[string]any {
	out := make(map[string]any, len(source))
	for key, value := range source {
		out[key] = mergeValue(value, translated[key])
	}
	return out
}

func mergeValue(source, translated any) any {
	if isEmpty(translated) {
		return source
	}
	switch src := source.(type) {
	case map[string]any:
		patch, ok := translated.(map[string]any)
		if !ok {
			return source
		}
		return MergePatch(src, patch)
	case []any:
		patch, ok := translated.([]any)
		if !ok {
			return source
		}
		merged := make([]any, len(src))
		for i := range src {
			if i < len(patch) {
				merged[i] = mergeValue(src[i], patch[i])
				continue
			}
			merged[i] = src[i]
		}
		return merged
	case string:
		if text, ok := translated.(string); ok {
			return text
		}
		return source
	default:
		return translated
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
