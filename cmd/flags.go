package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

// negatedBool is the --no-<name> half of a boolean toggle. Setting it writes
// the inverse into the positive flag's variable, so the last of the two on
// the command line wins.
type negatedBool struct {
	p *bool
}

func (n negatedBool) String() string {
	if n.p == nil {
		return "false"
	}
	return strconv.FormatBool(!*n.p)
}

func (n negatedBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*n.p = !v
	return nil
}

func (n negatedBool) Type() string {
	return "bool"
}

// boolToggle registers --name and --no-name for p.
func boolToggle(cmd *cobra.Command, p *bool, name, usage string) {
	cmd.Flags().BoolVar(p, name, false, usage)
	f := cmd.Flags().VarPF(negatedBool{p: p}, "no-"+name, "", "Disable --"+name)
	f.NoOptDefVal = "true"
}
