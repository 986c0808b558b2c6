package main

import "strings"

// sourceKindFor picks "yaml" or "json" from a config file's extension, the
// same pair of surfaces internal/config accepts.
func sourceKindFor(path string) string {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return "yaml"
	}
	return "json"
}
