package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/xconn/internal/auth"
	"github.com/danmuck/xconn/internal/protocol/session"
)

func authCmd(g *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Show the Xauthority entry used for the display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.resolve()
			if err != nil {
				return err
			}
			if cfg.AuthorityPath == "" {
				return fmt.Errorf("no authority file configured")
			}
			store, err := auth.Open(cfg.AuthorityPath)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if all {
				recs, err := store.Records()
				if err != nil {
					return err
				}
				for _, rec := range recs {
					printRecord(cmd, rec)
				}
				return nil
			}

			target, err := session.ParseTarget(cfg.Display)
			if err != nil {
				return err
			}
			rec, err := store.Lookup(target.Host, target.Family, target.Display)
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Fprintf(out, "no entry for %s in %s\n", target, store.Path())
				return nil
			}
			printRecord(cmd, *rec)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every entry in the file")

	return cmd
}

func printRecord(cmd *cobra.Command, rec auth.Record) {
	fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-24s display=%-4s %s (%d bytes)\n",
		rec.Family, rec.Address, rec.Display, rec.Name, len(rec.Data))
}
