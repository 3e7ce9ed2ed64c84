package calllog

import (
	"fmt"
	"time"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend    string // jsonl, rotating, sqlite or none
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Open builds the Store described by opts. An empty backend disables
// auditing.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "none":
		return NopStore{}, nil
	case "jsonl":
		return NewJSONLStore(opts.Path)
	case "rotating":
		return NewRotatingJSONLStore(opts.Path, opts.MaxSizeMB, opts.MaxBackups, opts.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(opts.Path)
	default:
		return nil, fmt.Errorf("unknown calllog backend %q", opts.Backend)
	}
}

func unixNano(ns int64) time.Time { return time.Unix(0, ns).UTC() }
