package main

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func infoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print server and screen information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := g.connect(cmd)
			if err != nil {
				return err
			}
			defer closeConn(c)

			info := c.ServerInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "display:          %s (%s %s)\n", c.Target(), c.Target().Network, c.Target().Address)
			fmt.Fprintf(out, "vendor:           %s\n", info.Text("vendor"))
			fmt.Fprintf(out, "release:          %d\n", info.Uint("release_number"))
			fmt.Fprintf(out, "max request:      %s\n", units.BytesSize(float64(info.Uint("maximum_request_length"))*4))
			fmt.Fprintf(out, "max reply:        %s\n", units.BytesSize(float64(cfg.Session.Limits.MaxReplyBytes)))
			fmt.Fprintf(out, "resource ids:     base=0x%08x mask=0x%08x\n", info.Uint("resource_id_base"), info.Uint("resource_id_mask"))
			fmt.Fprintf(out, "keycodes:         %d-%d\n", info.Uint("min_keycode"), info.Uint("max_keycode"))
			for _, f := range info.Records("pixmap_formats") {
				fmt.Fprintf(out, "pixmap format:    depth=%d bpp=%d pad=%d\n", f.Uint("depth"), f.Uint("bits_per_pixel"), f.Uint("scanline_pad"))
			}
			for i, s := range c.Screens() {
				fmt.Fprintf(out, "screen %d:\n", i)
				fmt.Fprintf(out, "  root:           0x%08x\n", s.Uint("root"))
				fmt.Fprintf(out, "  size:           %dx%d px (%dx%d mm)\n",
					s.Uint("width_in_pixels"), s.Uint("height_in_pixels"),
					s.Uint("width_in_millimeters"), s.Uint("height_in_millimeters"))
				fmt.Fprintf(out, "  root depth:     %d\n", s.Uint("root_depth"))
				fmt.Fprintf(out, "  root visual:    0x%x\n", s.Uint("root_visual"))
				fmt.Fprintf(out, "  depths:         %d\n", len(s.Records("depths")))
			}
			return nil
		},
	}
}
