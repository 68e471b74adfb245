package render

import (
	"strings"

	"github.com/armorclaw/errexplain/pkg/config"
)

// Negotiate resolves the output format. An explicit format wins; auto means
// text on the command line and html over HTTP. Over HTTP a Content-Type or
// Accept header mentioning json always forces json.
func Negotiate(format string, rc Context) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = config.FormatAuto
	}
	if format == config.FormatAuto {
		format = config.FormatHTML
		if !rc.IsHTTP() {
			format = config.FormatText
		}
	}
	if rc.IsHTTP() && rc.Request != nil && wantsJSON(rc.Request.Header.Get("Content-Type"), rc.Request.Header.Get("Accept")) {
		return config.FormatJSON
	}
	return format
}

func wantsJSON(headers ...string) bool {
	for _, h := range headers {
		if strings.Contains(strings.ToLower(h), "json") {
			return true
		}
	}
	return false
}
