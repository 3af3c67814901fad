package convert

// ToStringSlice converts various slice types to []string.
// Returns slice on success, nil on failure.
//
// Supported types:
//   - []string (returned as-is)
//   - []interface{} (each element converted via a type assertion)
//
// Example:
//
//	s := ToStringSlice([]interface{}{"a", "b", "c"})  // Returns ["a", "b", "c"]
func ToStringSlice(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []interface{}:
		result := make([]string, len(val))
		for i, item := range val {
			if s, ok := item.(string); ok {
				result[i] = s
			} else {
				return nil
			}
		}
		return result
	}
	return nil
}
