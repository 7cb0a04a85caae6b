package topic

import "strings"

const (
	separator   = "/"
	sharePrefix = "$share/"
)

// Match reports whether name matches filter under MQTT wildcard rules.
// A $share/{group}/ prefix on filter is ignored.
func Match(filter, name string) bool {
	filter = StripShare(filter)
	if filter == name {
		return true
	}
	if !strings.ContainsAny(filter, Wildcard+MultiWildcard) {
		return false
	}

	fs := strings.Split(filter, separator)
	ns := strings.Split(name, separator)
	for i, part := range fs {
		if part == MultiWildcard {
			return true
		}
		if i >= len(ns) {
			return false
		}
		if part != Wildcard && part != ns[i] {
			return false
		}
	}
	return len(fs) == len(ns)
}

// StripShare removes a $share/{group}/ prefix from filter.
func StripShare(filter string) string {
	if !strings.HasPrefix(filter, sharePrefix) {
		return filter
	}
	parts := strings.SplitN(filter, separator, 3)
	if len(parts) < 3 {
		return filter
	}
	return parts[2]
}
