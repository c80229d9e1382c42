package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/adapters/mcp"
	"github.com/jsamuelsen/quotesync/internal/adapters/render"
	"github.com/jsamuelsen/quotesync/internal/adapters/tui"
)

func newTUICmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			surface := tui.NewSurface()

			return c.withRuntime(cmd, buildOptions{Surface: surface, Draw: true}, func(rt *runtime) error {
				stopWatch, err := startBackground(cmd.Context(), rt)
				if err != nil {
					return err
				}
				defer stopWatch()

				return tui.Run(cmd.Context(), rt.svc, surface)
			})
		},
	}
}

func newMCPCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the quote tools over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, buildOptions{Surface: render.NewMemorySurface(), Draw: true}, func(rt *runtime) error {
				stopWatch, err := startBackground(cmd.Context(), rt)
				if err != nil {
					return err
				}
				defer stopWatch()

				err = mcp.ServeStdio(cmd.Context(), mcp.NewServer(rt.svc, Version), cmd.InOrStdin(), cmd.OutOrStdout())
				if errors.Is(err, cmd.Context().Err()) {
					return nil
				}

				return err
			})
		},
	}
}
