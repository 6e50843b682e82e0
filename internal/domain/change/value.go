package change

import "strings"

// splitFieldPath validates and splits a dot-separated field path into its
// non-empty segments.
func splitFieldPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrInvalidFieldPath
	}
	segments := strings.Split(path, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, ErrInvalidFieldPath
		}
	}
	return segments, nil
}

// ValidateFieldPath reports whether path is well-formed: non-empty, with
// only non-empty, dot-separated segments.
func ValidateFieldPath(path string) error {
	_, err := splitFieldPath(path)
	return err
}

// applyDotPath sets value at the dot-separated path inside doc, creating
// intermediate objects as needed. It never touches a sibling key and
// never overwrites an existing object with a scalar implicitly — a
// segment that resolves to a non-object value while the path still has
// segments beneath it is reported as ErrPathConflict.
func applyDotPath(doc map[string]any, path string, value any) error {
	segments, err := splitFieldPath(path)
	if err != nil {
		return err
	}

	cursor := doc
	for i, seg := range segments {
		last := i == len(segments)-1
		if last {
			cursor[seg] = value
			return nil
		}

		next, exists := cursor[seg]
		if !exists {
			child := make(map[string]any)
			cursor[seg] = child
			cursor = child
			continue
		}

		child, ok := next.(map[string]any)
		if !ok {
			return ErrPathConflict
		}
		cursor = child
	}
	return nil
}

// asObject reports whether v is a JSON-object-shaped value and returns it
// as a map[string]any.
func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// mergeObjectsInOrder recursively merges a sequence of object values,
// applied in the given order, so that later entries override earlier
// entries at overlapping leaf keys while untouched keys from earlier
// entries survive. Returns (nil, false) if any value is not an object.
func mergeObjectsInOrder(values []any) (map[string]any, bool) {
	result := make(map[string]any)
	for _, v := range values {
		obj, ok := asObject(v)
		if !ok {
			return nil, false
		}
		result = mergeObjectPair(result, obj)
	}
	return result, true
}

func mergeObjectPair(dst, src map[string]any) map[string]any {
	merged := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		merged[k] = v
	}
	for k, v := range src {
		if existing, ok := merged[k]; ok {
			existingObj, existingIsObj := asObject(existing)
			incomingObj, incomingIsObj := asObject(v)
			if existingIsObj && incomingIsObj {
				merged[k] = mergeObjectPair(existingObj, incomingObj)
				continue
			}
		}
		merged[k] = v
	}
	return merged
}
