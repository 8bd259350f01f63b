package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func atomCmd(g *globalFlags) *cobra.Command {
	var onlyIfExists bool

	cmd := &cobra.Command{
		Use:   "atom NAME",
		Short: "Intern an atom and resolve it back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.connect(cmd)
			if err != nil {
				return err
			}
			defer closeConn(c)

			atom, err := c.InternAtom(args[0], onlyIfExists)
			if err != nil {
				return err
			}
			if atom == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: none\n", args[0])
				return nil
			}
			name, err := c.AtomName(atom)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %d (%s)\n", args[0], atom, name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&onlyIfExists, "only-if-exists", false, "do not create the atom")

	return cmd
}
