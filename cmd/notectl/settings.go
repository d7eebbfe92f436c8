package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	api "github.com/fyrsmithlabs/notesd/internal/http"
)

func newSettingsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show settings (the API key is redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp api.SettingsResponse
			if err := opts.client().do(cmd.Context(), "GET", "/api/v1/settings", nil, &resp); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), resp, func(w io.Writer) { writeSettings(w, resp) })
		},
	}

	setKey := &cobra.Command{
		Use:   "set-key <key>",
		Short: "Save the Gemini API key (pass \"\" to clear it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return putSettings(cmd, opts, api.UpdateSettingsRequest{GeminiAPIKey: &args[0]})
		},
	}

	setTheme := &cobra.Command{
		Use:   "set-theme <light|dark|system>",
		Short: "Save the preferred theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return putSettings(cmd, opts, api.UpdateSettingsRequest{Theme: &args[0]})
		},
	}

	cmd.AddCommand(show, setKey, setTheme)
	return cmd
}

func putSettings(cmd *cobra.Command, opts *options, req api.UpdateSettingsRequest) error {
	var resp api.SettingsResponse
	if err := opts.client().do(cmd.Context(), "PUT", "/api/v1/settings", req, &resp); err != nil {
		return err
	}
	return opts.print(cmd.OutOrStdout(), resp, func(w io.Writer) { writeSettings(w, resp) })
}

func writeSettings(w io.Writer, s api.SettingsResponse) {
	key := "not set"
	if s.HasAPIKey {
		key = "set"
	}
	theme := s.Theme
	if theme == "" {
		theme = "system"
	}
	fmt.Fprintf(w, "Gemini API key: %s\n", key)
	fmt.Fprintf(w, "Theme:          %s\n", theme)
}
