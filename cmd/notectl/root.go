package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultServer = "http://127.0.0.1:8765"

// options are the persistent flags shared by every command.
type options struct {
	server  string
	json    bool
	timeout time.Duration
}

func (o *options) client() *client {
	return newClient(o.server, o.timeout)
}

// print writes v as indented JSON when --json is set, otherwise calls human.
func (o *options) print(w io.Writer, v any, human func(io.Writer)) error {
	if o.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(w)
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "notectl",
		Short: "CLI for the notesd notes server",
		Long: `notectl is a command-line interface for the notesd HTTP API.
It lists and edits notes, steps through undo history, manages settings
and runs AI text enhancement.`,
		Version:      version,
		SilenceUsage: true,
	}

	server := os.Getenv("NOTESD_SERVER")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "notesd server URL (env NOTESD_SERVER)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON responses")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "request timeout")

	root.AddCommand(
		newHealthCmd(opts),
		newListCmd(opts),
		newNewCmd(opts),
		newShowCmd(opts),
		newEditCmd(opts),
		newRmCmd(opts),
		newToggleCmd(opts, "fav", "favorite", "Toggle a note's favorite flag"),
		newToggleCmd(opts, "pin", "pin", "Toggle a note's pinned flag"),
		newTagCmd(opts),
		newHistoryCmd(opts),
		newStepCmd(opts, "undo", "Undo the last change"),
		newStepCmd(opts, "redo", "Redo the last undone change"),
		newReloadCmd(opts),
		newEnhanceCmd(opts),
		newSettingsCmd(opts),
	)
	return root
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check notesd server health",
		Long: `Check the health status of the notesd HTTP server.

Examples:
  notectl health
  notectl health --server http://localhost:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp healthResponse
			if err := opts.client().do(cmd.Context(), "GET", "/health", nil, &resp); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintf(w, "Server Status: %s\n", resp.Status)
				fmt.Fprintf(w, "Server URL: %s\n", opts.server)
				if resp.Version != "" {
					fmt.Fprintf(w, "Version: %s\n", resp.Version)
				}
				for _, name := range sortedKeys(resp.Services) {
					fmt.Fprintf(w, "  %-16s %s\n", name, resp.Services[name])
				}
			})
		},
	}
}
