package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router
type Group = router.Group

func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router that fixes trailing slashes and
// answers unmatched routes with a JSON error body, like the API handlers.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectTrailingSlash = true
	r.RedirectFixedPath = true
	r.SaveMatchedRoutePath = true
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	return r
}

func NotFoundHandler(ctx *RequestCtx) {
	jsonError(ctx, StatusNotFound, "route not found")
}

func MethodNotAllowedHandler(ctx *RequestCtx) {
	jsonError(ctx, StatusMethodNotAllowed, "method not allowed")
}

func jsonError(ctx *RequestCtx, status int, msg string) {
	ctx.Response.Header.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBodyString(`{"error":"` + msg + `"}`)
}
