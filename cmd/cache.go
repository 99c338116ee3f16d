package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the verdict cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <url>",
			Short: "Print the cached verdict for a URL",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				deps, err := cacheDeps(cmd)
				if err != nil {
					return err
				}
				defer deps.Close()

				v, ok := deps.Cache.Get(cmd.Context(), args[0], deps.Config.Validation.Scores)
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "not cached")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%.2f\tvalid=%t\n", v.URL, v.Status, v.ReasonCode, v.Score, v.Valid)
				return nil
			},
		},
		&cobra.Command{
			Use:   "forget <url>...",
			Short: "Drop cached verdicts so the URLs are checked again",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				deps, err := cacheDeps(cmd)
				if err != nil {
					return err
				}
				defer deps.Close()

				for _, u := range args {
					if delErr := deps.Cache.Delete(cmd.Context(), u); delErr != nil {
						return fmt.Errorf("forget %s: %w", u, delErr)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "forgot %d urls\n", len(args))
				return nil
			},
		},
		&cobra.Command{
			Use:   "flush",
			Short: "Delete every cached verdict",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				deps, err := cacheDeps(cmd)
				if err != nil {
					return err
				}
				defer deps.Close()

				n, err := deps.Cache.Flush(cmd.Context())
				if err != nil {
					return fmt.Errorf("flush cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d cached verdicts\n", n)
				return nil
			},
		},
	)

	return cmd
}

func cacheDeps(cmd *cobra.Command) (*commandDeps, error) {
	deps, err := newCommandDeps(cmd.Context(), depsOptions{cli: true})
	if err != nil {
		return nil, err
	}
	if deps.Cache == nil {
		deps.Close()
		return nil, errCacheDisabled
	}
	return deps, nil
}
