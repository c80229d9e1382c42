package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/adapters/render"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// withRuntime opens a runtime, runs fn and closes the runtime, joining any
// close error into the result.
func (c *cli) withRuntime(cmd *cobra.Command, opts buildOptions, fn func(rt *runtime) error) (err error) {
	rt, err := c.open(cmd, opts)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, rt.Close(cmd.Context()))
	}()

	return fn(rt)
}

// quiet is for commands that mutate: their redraws go nowhere and the
// command prints a short status instead.
func quiet() buildOptions {
	return buildOptions{Surface: render.NewMemorySurface()}
}

func newShowCmd(c *cli) *cobra.Command {
	var random bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the quotes in the selected category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, buildOptions{}, func(rt *runtime) error {
				if !random {
					return rt.svc.Refresh(cmd.Context())
				}

				_, err := rt.svc.ShowRandom(cmd.Context())

				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&random, "random", "r", false, "show one random quote instead of the list")

	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes, optionally in one category without changing the selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, buildOptions{}, func(rt *runtime) error {
				if category == "" {
					return rt.svc.Refresh(cmd.Context())
				}

				surface, err := render.NewSurface(rt.cfg.Render.Surface, cmd.OutOrStdout(), rt.cfg.Render.WordWrap, rt.logger)
				if err != nil {
					return err
				}

				return surface.Draw(cmd.Context(), app.ListView(rt.svc.Quotes(cmd.Context(), category)))
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category to list, or 'all'")

	return cmd
}

func newAddCmd(c *cli) *cobra.Command {
	var text, category string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a quote",
		Example: `  quotesync add --text "First, solve the problem." --category Programming
  quotesync add "Stay hungry." Motivation`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				text = args[0]
			}

			if len(args) > 1 {
				category = args[1]
			}

			return c.withRuntime(cmd, quiet(), func(rt *runtime) error {
				quote, err := rt.svc.Add(cmd.Context(), text, category)
				if domain.IsValidation(err) {
					return errors.New("please enter both a quote and a category")
				}

				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Added %q to %s\n", quote.Text, quote.Category)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "quote text")
	cmd.Flags().StringVarP(&category, "category", "c", "", "quote category")

	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Append quotes from a JSON array file ('-' reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			return c.withRuntime(cmd, quiet(), func(rt *runtime) error {
				n, err := rt.svc.Import(cmd.Context(), raw)
				if err != nil {
					return fmt.Errorf("importing %s: %w", args[0], err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Quotes imported successfully! (%d added, %d total)\n", n, len(rt.svc.All()))

				return nil
			})
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every quote as an indented JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, quiet(), func(rt *runtime) error {
				data := rt.svc.Export(cmd.Context())

				if output == "" || output == "-" {
					_, err := cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}

				if err := os.WriteFile(output, data, 0o600); err != nil {
					return fmt.Errorf("writing %s: %w", output, err)
				}

				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d quotes to %s\n", len(rt.svc.All()), output)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")

	return cmd
}

func newCategoriesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories; the selected one is marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, quiet(), func(rt *runtime) error {
				selected := rt.svc.Selected(cmd.Context())

				for _, category := range rt.svc.Categories() {
					marker := " "
					if category == selected {
						marker = "*"
					}

					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, category)
				}

				return nil
			})
		},
	}
}

func newSelectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "select CATEGORY",
		Short: "Save the category selection; unknown categories select all",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd, quiet(), func(rt *runtime) error {
				stored, err := rt.svc.Select(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if stored != args[0] {
					fmt.Fprintf(cmd.ErrOrStderr(), "unknown category %q\n", args[0])
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", stored)

				return nil
			})
		},
	}
}

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile with the quote server once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, quiet(), func(rt *runtime) error {
				result, err := rt.svc.SyncNow(cmd.Context())
				if errors.Is(err, app.ErrSyncDisabled) {
					return errors.New("sync is disabled (set sync.enabled or APP_SYNC_ENABLED=true)")
				}

				if err != nil {
					return fmt.Errorf("sync failed: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d, added %d, %d total (%s)\n",
					result.Fetched, result.Added, result.Total, result.Policy)

				return nil
			})
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		return raw, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return raw, nil
}
