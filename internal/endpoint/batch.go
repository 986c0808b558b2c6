package endpoint

import (
	"sort"
	"strconv"
	"strings"
)

// ShapeKey canonicalizes the endpoint shape a batch window accumulates
// under: (method, scheme://host:port/path, headers, non-group query keys)
// per spec.md §4.3(b). Two logical calls with the same ShapeKey and the
// same field-level batch annotation are eligible to share one window.
func ShapeKey(ep *Endpoint, req *Request) string {
	var sb strings.Builder
	sb.WriteString(string(req.Method))
	sb.WriteString(" ")
	sb.WriteString(ep.Scheme)
	sb.WriteString("://")
	sb.WriteString(ep.Host)
	if ep.Port != 0 {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(ep.Port))
	}
	sb.WriteString(ep.Path)

	headerKeys := make([]string, 0, len(req.Headers))
	for k := range req.Headers {
		if k == "content-length" {
			continue // varies per logical call's input, never part of the shape
		}
		headerKeys = append(headerKeys, k)
	}
	sort.Strings(headerKeys)
	for _, k := range headerKeys {
		sb.WriteString("\n")
		sb.WriteString(strings.ToLower(k))
		sb.WriteString(":")
		sb.WriteString(req.Headers[k])
	}

	if ep.Batch != nil {
		groupSet := make(map[string]struct{}, len(ep.Batch.GroupBy))
		for _, g := range ep.Batch.GroupBy {
			groupSet[g] = struct{}{}
		}
		var nonGroupKeys []string
		for _, q := range ep.Query {
			if _, isGroup := groupSet[q.Key]; !isGroup {
				nonGroupKeys = append(nonGroupKeys, q.Key)
			}
		}
		sort.Strings(nonGroupKeys)
		sb.WriteString("\nq:")
		sb.WriteString(strings.Join(nonGroupKeys, ","))
	}

	return sb.String()
}
