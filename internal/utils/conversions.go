package utils

import "strings"

// ToStringSlice keeps the non-empty string elements of a decoded JSON array,
// such as a "roles" claim, trimming surrounding whitespace.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0, len(slice))
	for _, v := range slice {
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				stringSlice = append(stringSlice, s)
			}
		}
	}
	return stringSlice
}
