package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/xconn/internal/protocol/schema"
)

func fontsCmd(g *globalFlags) *cobra.Command {
	var maxNames int

	cmd := &cobra.Command{
		Use:   "fonts [PATTERN]",
		Short: "List fonts matching a pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			c, _, err := g.connect(cmd)
			if err != nil {
				return err
			}
			defer closeConn(c)

			rec, err := c.SendSync(schema.ListFonts.Build("max_names", maxNames, "pattern", pattern), schema.ListFontsReply)
			if err != nil {
				return err
			}
			for _, name := range rec.Records("names") {
				fmt.Fprintln(cmd.OutOrStdout(), name.Text("name"))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxNames, "max", "n", 20, "maximum number of names")

	return cmd
}
