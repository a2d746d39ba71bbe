package client

import (
	"net/http"
	"net/url"
	"strings"
)

// Transport is an http.RoundTripper decorator that attaches the anti-forgery
// header to outgoing state-changing requests.
//
// For each request whose URL matches the protected origin and whose method is
// mutating (POST, PUT, PATCH, DELETE), it reads the token from the cookie jar
// and sets the configured header. The transformation is synchronous, applied
// in RoundTrip immediately before dispatch; requests to other origins or with
// safe methods pass through untouched.
type Transport struct {
	// Base is the underlying transport. nil means http.DefaultTransport.
	Base http.RoundTripper

	// Jar is the cookie jar holding the token cookie. It must be the same jar
	// the http.Client uses, so cookies (credentials) travel with the request.
	Jar http.CookieJar

	// Origin is the protected API origin, e.g. "https://api.example.com".
	Origin string

	// CookieName and HeaderName mirror the server configuration.
	CookieName string
	HeaderName string
}

func isMutating(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// sameOrigin compara scheme y host (con puerto) contra el origin protegido.
func sameOrigin(u *url.URL, origin string) bool {
	o, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, o.Scheme) && strings.EqualFold(u.Host, o.Host)
}

// token busca la cookie del token en el jar para la URL dada.
func (t *Transport) token(u *url.URL) string {
	if t.Jar == nil {
		return ""
	}
	name := t.CookieName
	if name == "" {
		name = "XSRF-TOKEN"
	}
	for _, c := range t.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if !isMutating(req.Method) || !sameOrigin(req.URL, t.Origin) {
		return base.RoundTrip(req)
	}

	tok := t.token(req.URL)
	if tok == "" {
		// Sin token no hay nada que adjuntar; el servidor va a rechazar y el
		// caller debe re-correr Init en la próxima carga.
		return base.RoundTrip(req)
	}

	header := t.HeaderName
	if header == "" {
		header = "X-XSRF-TOKEN"
	}

	// RoundTrippers no deben mutar el request original.
	clone := req.Clone(req.Context())
	clone.Header.Set(header, tok)
	return base.RoundTrip(clone)
}
