package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	logs "github.com/danmuck/xconn/internal/logging"
	"github.com/danmuck/xconn/internal/observability"
	"github.com/danmuck/xconn/internal/protocol"
	"github.com/danmuck/xconn/internal/protocol/schema"
	"github.com/danmuck/xconn/internal/protocol/session"
)

const watchEventMask = schema.ExposureMask |
	schema.KeyPressMask |
	schema.ButtonPressMask |
	schema.StructureNotifyMask

func watchCmd(g *globalFlags) *cobra.Command {
	var (
		metricsAddr string
		width       int
		height      int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open a window and print the events it receives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := g.connect(cmd)
			if err != nil {
				return err
			}
			defer closeConn(c)

			if metricsAddr == "" {
				metricsAddr = cfg.MetricsAddr
			}
			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr)
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					_ = srv.Shutdown(ctx)
				}()
			}

			w, err := openWindow(c, width, height)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "window 0x%08x mapped; ctrl-c to stop\n", w.id)

			stop := context.AfterFunc(cmd.Context(), func() { _ = c.Close() })
			defer stop()

			return c.Run(func(p session.Packet) error {
				switch v := p.(type) {
				case *session.Event:
					fmt.Fprintf(cmd.OutOrStdout(), "%-16s seq=%-5d %s\n", v.Name, v.Seq, v)
					if v.Code == schema.EventExpose && v.Record.Uint("count") == 0 {
						return w.paint(c)
					}
					if v.Code == schema.EventDestroyNotify {
						return session.ErrStopRun
					}
				case *session.ServerError:
					fmt.Fprintf(cmd.OutOrStdout(), "error            %v\n", v)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	cmd.Flags().IntVar(&width, "width", 320, "window width")
	cmd.Flags().IntVar(&height, "height", 120, "window height")

	return cmd
}

func serveMetrics(addr string) *http.Server {
	observability.RegisterMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Errf("xconnctl: metrics server: %v", err)
		}
	}()
	logs.Infof("xconnctl: serving metrics on %s/metrics", addr)
	return srv
}

type window struct {
	id     uint32
	gc     uint32
	font   uint32
	width  int
	height int
}

func openWindow(c *session.Conn, width, height int) (*window, error) {
	screen := c.DefaultScreen()
	if screen == nil {
		return nil, fmt.Errorf("server reported no screens")
	}
	w := &window{width: width, height: height}
	var err error
	for _, id := range []*uint32{&w.id, &w.gc, &w.font} {
		if *id, err = c.AllocateResourceID(); err != nil {
			return nil, err
		}
	}

	requests := []*protocol.Record{
		schema.CreateWindow.Build(
			"depth", 0,
			"wid", w.id,
			"parent", screen.Uint("root"),
			"width", width,
			"height", height,
			"class", schema.InputOutput,
			"value_mask", schema.CWBackPixel|schema.CWEventMask,
			"value_list", []uint32{screen.Uint("white_pixel"), watchEventMask},
		),
		schema.OpenFont.Build("fid", w.font, "name", "fixed"),
		schema.CreateGC.Build(
			"cid", w.gc,
			"drawable", w.id,
			"value_mask", schema.GCForeground|schema.GCBackground|schema.GCFont,
			"value_list", []uint32{screen.Uint("black_pixel"), screen.Uint("white_pixel"), w.font},
		),
		schema.MapWindow.Build("window", w.id),
	}
	for _, req := range requests {
		if _, err := c.SendRequest(req); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *window) paint(c *session.Conn) error {
	bar := schema.Rectangle.Build("x", 0, "y", 0, "width", w.width, "height", 4)
	if _, err := c.SendRequest(schema.PolyFillRectangle.Build(
		"drawable", w.id,
		"gc", w.gc,
		"rectangles", []*protocol.Record{bar},
	)); err != nil {
		return err
	}
	_, err := c.SendRequest(schema.ImageText8.Build(
		"drawable", w.id,
		"gc", w.gc,
		"x", 10,
		"y", 24,
		"text", "xconn watch",
	))
	return err
}
