package sync

import (
	"fmt"
	"strings"

	"github.com/zeusync/docworld/internal/core/observability/log"
	"github.com/zeusync/docworld/internal/core/world"
)

// Protocol selects how document changes reach the world.
type Protocol uint8

const (
	// ProtocolDiff re-derives entity and component key sets from the document
	// and replays only the set differences.
	ProtocolDiff Protocol = iota
	// ProtocolPatch walks the patches of every change and dispatches them by
	// path depth.
	ProtocolPatch
)

func (p Protocol) String() string {
	switch p {
	case ProtocolDiff:
		return "diff"
	case ProtocolPatch:
		return "patch"
	default:
		return "unknown"
	}
}

// ParseProtocol maps a config name to a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "diff":
		return ProtocolDiff, nil
	case "patch":
		return ProtocolPatch, nil
	default:
		return ProtocolDiff, fmt.Errorf("%w %q", ErrUnknownProtocol, s)
	}
}

type options struct {
	log      log.Log
	protocol Protocol
	world    []world.Option
}

// Option configures a Synchronizer.
type Option func(*options)

func WithLogger(l log.Log) Option {
	return func(o *options) { o.log = l }
}

func WithProtocol(p Protocol) Option {
	return func(o *options) { o.protocol = p }
}

// WithWorldOptions is used by Open when it builds the world.
func WithWorldOptions(opts ...world.Option) Option {
	return func(o *options) { o.world = append(o.world, opts...) }
}

func buildOptions(opts []Option) options {
	o := options{log: log.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
