package routes

import "net/http"

// Route binds an HTTP method and a pattern relative to its group to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

func (r Route) pattern(prefix string) string {
	return r.Method + " " + prefix + r.Pattern
}
