package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	api "github.com/fyrsmithlabs/notesd/internal/http"
)

func newEnhanceCmd(opts *options) *cobra.Command {
	var text, tone string
	var apply bool
	cmd := &cobra.Command{
		Use:   "enhance [note-id]",
		Short: "Rewrite text with Gemini",
		Long: `Rewrite text in a chosen tone using the Gemini API key from settings.

With a note id and no --text, the note's content is enhanced. --apply
writes the result back to the note as one undoable change. Text can
also be piped on stdin with --text -.

Examples:
  notectl enhance --text "hi, pls review" --tone formal
  notectl enhance note-1 --apply
  cat draft.md | notectl enhance --text -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.EnhanceRequest{Text: text, Tone: tone, Apply: apply}
			if len(args) == 1 {
				req.NoteID = args[0]
			}
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}
				req.Text = string(data)
			}
			if req.NoteID == "" && strings.TrimSpace(req.Text) == "" {
				return errors.New("pass a note id or --text")
			}

			var resp api.EnhanceResponse
			if err := opts.client().do(cmd.Context(), "POST", "/api/v1/enhance", req, &resp); err != nil {
				return err
			}
			if err := opts.print(cmd.OutOrStdout(), resp, func(w io.Writer) {
				if !resp.Success {
					return
				}
				fmt.Fprintln(w, resp.Content)
				if resp.Note != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "\n[notectl] Applied to %s (undo with: notectl undo)\n", resp.Note.ID)
				}
			}); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("enhance failed: %s", resp.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "text to enhance, or - for stdin")
	cmd.Flags().StringVar(&tone, "tone", "", "target tone (default professional)")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the result back to the note")
	return cmd
}
