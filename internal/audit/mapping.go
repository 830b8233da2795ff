package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// namespaces are leading route segments that group routes without naming a resource.
var namespaces = map[string]bool{"api": true, "admin": true, "auth": true}

// ParseRoute returns action and resource for a method and chi route pattern
// (e.g. POST /api/v1/admin/users/{id}/terminate -> terminate on user).
// Resource is the first segment after the prefix and namespaces, singularized.
// Action is the trailing verb segment when present, otherwise derived from the HTTP method:
// get (or list when no path parameter follows the resource), create, update, delete.
func ParseRoute(method, pattern string) ActionResource {
	var segs []string
	trailingParam := false
	for _, s := range strings.Split(pattern, "/") {
		switch {
		case s == "" || s == "*":
			continue
		case strings.HasPrefix(s, "{"):
			trailingParam = true
			continue
		case len(segs) == 0 && (namespaces[s] || isVersion(s)):
			continue
		}
		trailingParam = false
		segs = append(segs, s)
	}
	if len(segs) == 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	resource := singular(segs[0])
	if len(segs) > 1 {
		return ActionResource{Action: normalize(segs[len(segs)-1]), Resource: resource}
	}
	return ActionResource{Action: methodToAction(method, trailingParam), Resource: resource}
}

func isVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func singular(s string) string {
	s = normalize(s)
	if strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "-", "_")
}

func methodToAction(method string, byID bool) string {
	switch method {
	case http.MethodGet:
		if byID {
			return "get"
		}
		return "list"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
