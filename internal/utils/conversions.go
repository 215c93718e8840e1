package utils

func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// ToAnySlice widens a string slice for storage in generic attribute maps.
func ToAnySlice(slice []string) []any {
	anySlice := make([]any, 0, len(slice))
	for _, s := range slice {
		anySlice = append(anySlice, s)
	}
	return anySlice
}

// StringValue returns the string under key in a generic map, or "" if the key
// is absent or holds a non-string value.
func StringValue(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// MapValue returns the nested map under key, or nil if the key is absent or
// holds a non-map value.
func MapValue(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if nested, ok := m[key].(map[string]any); ok {
		return nested
	}
	return nil
}
