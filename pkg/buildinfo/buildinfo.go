// Package buildinfo carries the version stamped in at link time.
package buildinfo

import "go.uber.org/zap"

const unknown = "N/A"

// Info is filled from -ldflags "-X main.buildVersion=..." style variables.
type Info struct {
	Version string
	Date    string
	Commit  string
}

func orUnknown(v string) string {
	if v == "" {
		return unknown
	}
	return v
}

// Fields renders the info for the startup log line. Empty parts read "N/A".
func (i Info) Fields() []zap.Field {
	return []zap.Field{
		zap.String("build_version", orUnknown(i.Version)),
		zap.String("build_date", orUnknown(i.Date)),
		zap.String("build_commit", orUnknown(i.Commit)),
	}
}
