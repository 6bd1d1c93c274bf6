package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bft-labs/omnisustain/internal/cliconfig"
	"github.com/bft-labs/omnisustain/internal/units"
	"github.com/bft-labs/omnisustain/pkg/convert"
	"github.com/bft-labs/omnisustain/pkg/executor"
	"github.com/bft-labs/omnisustain/pkg/work"
)

func (c *cli) checkCmd() *cobra.Command {
	var showPairs bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and converter coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			conv := convert.New(executor.New(nil), nil)

			if showPairs {
				table := tablewriter.NewWriter(c.out)
				table.Header("From", "To")
				for _, p := range conv.Pairs() {
					_ = table.Append([]string{p.From.String(), p.To.String()})
				}
				if err := table.Render(); err != nil {
					return err
				}
			}

			if err := checkCoverage(conv, work.Type(c.cfg.Target), c.cfg.Units); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "ok: %d units, root exposed as %s\n", len(c.cfg.Units), c.cfg.Target)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPairs, "pairs", false, "print the registered converter pairs")
	return cmd
}

// checkCoverage verifies every conversion the daemon will need is registered.
func checkCoverage(conv *convert.OmniConverter, target work.Type, cfgs []cliconfig.UnitConfig) error {
	if !conv.Has(work.TypeStartStop, target) {
		return &convert.NoConverterError{From: work.TypeStartStop, To: target}
	}
	if !conv.Has(target, work.TypeStartStop) {
		return &convert.NoConverterError{From: target, To: work.TypeStartStop}
	}
	for _, u := range cfgs {
		rep, err := units.Representation(u.Kind)
		if err != nil {
			return err
		}
		if !conv.Has(rep, work.TypeStartStop) {
			return fmt.Errorf("unit %s: %w", u.Name, &convert.NoConverterError{From: rep, To: work.TypeStartStop})
		}
	}
	return nil
}
