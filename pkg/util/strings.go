package util

import "strings"

// SplitCommaSeparated splits a comma-separated string and trims whitespace from each element.
// Empty input returns nil.
func SplitCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// EnvName converts a settings key into the UOFT_<APP>_<KEY> environment
// variable name. Dashes and dots are not valid in variable names and become
// underscores.
func EnvName(app, key string) string {
	key = strings.NewReplacer("-", "_", ".", "_").Replace(key)
	return strings.ToUpper("uoft_" + app + "_" + key)
}

// KebabCase converts a snake_case settings key into a CLI flag name.
func KebabCase(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
