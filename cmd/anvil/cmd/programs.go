package cmd

import (
	"fmt"
	"sort"

	"github.com/lugondev/go-anvil/examples/counter"
	"github.com/lugondev/go-anvil/internal/host"
	"github.com/lugondev/go-anvil/pkg/types"
	"github.com/lugondev/go-anvil/pkg/view"
)

// programs are the built-in programs simulate can run.
var programs = map[string]host.ProgramFunc{
	"counter": func(inv *host.Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
		return counter.Process(inv, programID, accounts, data)
	},
}

func lookupProgram(name string) (host.ProgramFunc, error) {
	fn, ok := programs[name]
	if !ok {
		names := make([]string, 0, len(programs))
		for n := range programs {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown program %q (available: %v)", name, names)
	}
	return fn, nil
}
