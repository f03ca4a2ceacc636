// Package plugins registers the built-in processors under their
// configuration kinds.
package plugins

import (
	"fmt"
	"sort"

	"github.com/perastrom/koto/pkg/engine"
	"github.com/perastrom/koto/pkg/plugins/eq"
	"github.com/perastrom/koto/pkg/plugins/gain"
	"github.com/perastrom/koto/pkg/plugins/passthrough"
	"github.com/perastrom/koto/pkg/plugins/transposer"
	"github.com/perastrom/koto/pkg/processor"
)

var builders = map[string]func(processor.HostControl) processor.Processor{
	"gain":        func(h processor.HostControl) processor.Processor { return gain.New(h) },
	"passthrough": func(h processor.HostControl) processor.Processor { return passthrough.New(h) },
	"transposer":  func(h processor.HostControl) processor.Processor { return transposer.New(h) },
	"eq":          func(h processor.HostControl) processor.Processor { return eq.New(h) },
}

// NewFactory returns the engine factory covering all built-in kinds.
func NewFactory() engine.Factory {
	return func(kind string, host processor.HostControl) (processor.Processor, error) {
		b, ok := builders[kind]
		if !ok {
			return nil, fmt.Errorf("unknown plugin kind %q", kind)
		}
		return b(host), nil
	}
}

// Kinds lists the registered plugin kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(builders))
	for k := range builders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
