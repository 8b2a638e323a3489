package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// NewLogger returns a logfmt logger writing to w that drops records below
// lvl (debug, info, warn or error).
func NewLogger(w io.Writer, lvl string) (log.Logger, error) {
	var allow level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		allow = level.AllowDebug()
	case "info", "":
		allow = level.AllowInfo()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		return nil, fmt.Errorf("unknown log level %q", lvl)
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, allow)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}
