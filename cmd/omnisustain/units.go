package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bft-labs/omnisustain/internal/cliconfig"
	"github.com/bft-labs/omnisustain/internal/units"
)

func (c *cli) unitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "List the configured units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			if len(c.cfg.Units) == 0 {
				fmt.Fprintln(c.out, "No units configured.")
				return nil
			}

			table := tablewriter.NewWriter(c.out)
			table.Header("Name", "Kind", "Representation", "Group", "Detail")
			for _, u := range c.cfg.Units {
				rep, err := units.Representation(u.Kind)
				if err != nil {
					return err
				}
				group := u.Group
				if group == "" {
					group = "-"
				}
				_ = table.Append([]string{u.Name, u.Kind, rep.String(), group, unitDetail(u)})
			}
			return table.Render()
		},
	}
}

func unitDetail(u cliconfig.UnitConfig) string {
	switch u.Kind {
	case cliconfig.KindWatch:
		return u.Path
	case cliconfig.KindTick:
		return "every " + u.Interval.String()
	case cliconfig.KindTimer:
		return "after " + u.Interval.String()
	default:
		return ""
	}
}
