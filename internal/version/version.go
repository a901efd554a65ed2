// Package version carries build information and the client identifiers
// purelink sends on outbound requests.
package version

import (
	"net/http"

	"github.com/vfaronov/httpheader"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// desktopBrowser identifies as a desktop Chrome; some shorteners refuse
// library user agents.
var desktopBrowser = []httpheader.Product{
	{Name: "Mozilla", Version: "5.0", Comment: "Windows NT 10.0; Win64; x64"},
	{Name: "AppleWebKit", Version: "537.36", Comment: "KHTML, like Gecko"},
	{Name: "Chrome", Version: "124.0.0.0"},
	{Name: "Safari", Version: "537.36"},
}

// SetClientUserAgent marks a request as coming from purelink itself.
func SetClientUserAgent(h http.Header) {
	httpheader.SetUserAgent(h, []httpheader.Product{{Name: "purelink", Version: Version}})
}

// SetBrowserUserAgent sets override when non-empty, otherwise the desktop
// browser identification.
func SetBrowserUserAgent(h http.Header, override string) {
	if override != "" {
		h.Set("User-Agent", override)
		return
	}
	httpheader.SetUserAgent(h, desktopBrowser)
}
