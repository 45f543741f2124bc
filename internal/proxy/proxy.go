// Package proxy rewrites stream URLs through a configured CORS proxy.
package proxy

import (
	"net/url"

	"github.com/sirupsen/logrus"
)

// Rewriter wraps stream URLs with a proxy endpoint. With no BaseURL
// configured it passes URLs through unchanged and logs a warning, since
// unproxied streams may fail due to CORS.
type Rewriter struct {
	BaseURL string
	Log     logrus.FieldLogger
}

// New returns a Rewriter for the given proxy base URL. baseURL may be empty.
func New(baseURL string, log logrus.FieldLogger) *Rewriter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Rewriter{BaseURL: baseURL, Log: log}
}

// Rewrite returns the proxied form of streamURL, or streamURL unchanged when
// no proxy is configured or the URL does not need rewriting.
func (r *Rewriter) Rewrite(streamURL string) string {
	if streamURL == "" {
		return streamURL
	}
	if r.BaseURL == "" {
		r.Log.Warn("proxy url not configured; streams may fail due to CORS")
		return streamURL
	}
	if !needsRewrite(streamURL) {
		return streamURL
	}
	return r.BaseURL + "?url=" + url.QueryEscape(streamURL)
}

// Configured reports whether a proxy endpoint is set.
func (r *Rewriter) Configured() bool { return r.BaseURL != "" }

// needsRewrite reports whether a URL should be routed through the proxy.
// External streams rarely send CORS headers, so every URL qualifies; an
// allow-list of known-good domains could relax this later.
func needsRewrite(streamURL string) bool {
	return streamURL != ""
}
