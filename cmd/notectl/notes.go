package main

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	api "github.com/fyrsmithlabs/notesd/internal/http"
	"github.com/fyrsmithlabs/notesd/internal/notes"
)

type (
	healthResponse = api.HealthResponse
	listResponse   = api.NoteListResponse
)

func newListCmd(opts *options) *cobra.Command {
	var filter, query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Long: `List notes, pinned first.

Examples:
  notectl list
  notectl list --filter favorites
  notectl list --query groceries`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := url.Values{}
			if filter != "" {
				params.Set("filter", filter)
			}
			if query != "" {
				params.Set("q", query)
			}
			path := "/api/v1/notes"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var resp listResponse
			if err := opts.client().do(cmd.Context(), "GET", path, nil, &resp); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), resp, func(w io.Writer) {
				if len(resp.Notes) == 0 {
					fmt.Fprintln(w, resp.Message)
					if resp.SubMessage != "" {
						fmt.Fprintln(w, resp.SubMessage)
					}
					return
				}
				for _, n := range resp.Notes {
					fmt.Fprintln(w, formatNoteLine(n))
				}
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "all, recent or favorites")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search title and content")
	return cmd
}

func newNewCmd(opts *options) *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "new [title]",
		Short: "Create a note",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.CreateNoteRequest{Content: content}
			if len(args) == 1 {
				req.Title = args[0]
			}
			var n notes.Note
			if err := opts.client().do(cmd.Context(), "POST", "/api/v1/notes", req, &n); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), n, func(w io.Writer) {
				fmt.Fprintf(w, "Created %s\n", n.ID)
			})
		},
	}
	cmd.Flags().StringVarP(&content, "content", "c", "", "note content (Markdown)")
	return cmd
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n notes.Note
			if err := opts.client().do(cmd.Context(), "GET", notePath(args[0]), nil, &n); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), n, func(w io.Writer) { writeNote(w, n) })
		},
	}
}

func newEditCmd(opts *options) *cobra.Command {
	var title, content string
	var tags []string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a note's title, content or tags",
		Long: `Edit a note. Only the flags you pass are changed.

Examples:
  notectl edit note-1 --title "Groceries"
  notectl edit note-1 --content "- milk"
  notectl edit note-1 --tags home,errands`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch notes.Patch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("content") {
				patch.Content = &content
			}
			if cmd.Flags().Changed("tags") {
				patch.Tags = &tags
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to change: pass --title, --content or --tags")
			}

			var n notes.Note
			if err := opts.client().do(cmd.Context(), "PATCH", notePath(args[0]), patch, &n); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), n, func(w io.Writer) {
				fmt.Fprintf(w, "Updated %s\n", n.ID)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "replace tags (comma separated)")
	return cmd
}

func newRmCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Short:   "Delete a note (undoable)",
		Aliases: []string{"delete"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().do(cmd.Context(), "DELETE", notePath(args[0]), nil, nil); err != nil {
				return err
			}
			if !opts.json {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			}
			return nil
		},
	}
}

// newToggleCmd builds fav and pin, which POST to /notes/:id/<action>.
func newToggleCmd(opts *options, use, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n notes.Note
			if err := opts.client().do(cmd.Context(), "POST", notePath(args[0], action), nil, &n); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), n, func(w io.Writer) {
				state := n.IsFavorite
				if action == "pin" {
					state = n.IsPinned
				}
				fmt.Fprintf(w, "%s %s: %s\n", n.ID, action, onOff(state))
			})
		},
	}
}

func newTagCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add or remove note tags",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <id> <tag>",
		Short: "Add a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n notes.Note
			req := api.AddTagRequest{Tag: args[1]}
			if err := opts.client().do(cmd.Context(), "POST", notePath(args[0], "tags"), req, &n); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), n, func(w io.Writer) {
				fmt.Fprintf(w, "%s tags: %s\n", n.ID, strings.Join(n.Tags, ", "))
			})
		},
	}, &cobra.Command{
		Use:     "rm <id> <tag>",
		Short:   "Remove a tag",
		Aliases: []string{"remove"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n notes.Note
			if err := opts.client().do(cmd.Context(), "DELETE", notePath(args[0], "tags", args[1]), nil, &n); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), n, func(w io.Writer) {
				fmt.Fprintf(w, "%s tags: %s\n", n.ID, strings.Join(n.Tags, ", "))
			})
		},
	})
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the undo/redo position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st notes.HistoryStatus
			if err := opts.client().do(cmd.Context(), "GET", "/api/v1/history", nil, &st); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), st, func(w io.Writer) { writeHistory(w, st) })
		},
	}
}

// newStepCmd builds undo and redo.
func newStepCmd(opts *options, op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   op,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st notes.HistoryStatus
			if err := opts.client().do(cmd.Context(), "POST", "/api/v1/history/"+op, nil, &st); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), st, func(w io.Writer) { writeHistory(w, st) })
		},
	}
}

func newReloadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reread saved notes and clear the undo history",
		Long: `Reread the saved collection from the server's store. Unsaved changes
and the undo history are discarded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp api.ReloadResponse
			if err := opts.client().do(cmd.Context(), "POST", "/api/v1/notes/reload", nil, &resp); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintf(w, "Reloaded %d notes\n", resp.Count)
				writeHistory(w, resp.History)
			})
		},
	}
}

func formatNoteLine(n notes.Note) string {
	var flags strings.Builder
	if n.IsPinned {
		flags.WriteString("P")
	} else {
		flags.WriteString(" ")
	}
	if n.IsFavorite {
		flags.WriteString("*")
	} else {
		flags.WriteString(" ")
	}
	line := fmt.Sprintf("%s  %-24s  %s", flags.String(), n.ID, n.Title)
	if len(n.Tags) > 0 {
		line += "  [" + strings.Join(n.Tags, ", ") + "]"
	}
	return line
}

func writeNote(w io.Writer, n notes.Note) {
	fmt.Fprintf(w, "ID:       %s\n", n.ID)
	fmt.Fprintf(w, "Title:    %s\n", n.Title)
	if len(n.Tags) > 0 {
		fmt.Fprintf(w, "Tags:     %s\n", strings.Join(n.Tags, ", "))
	}
	fmt.Fprintf(w, "Favorite: %s\n", onOff(n.IsFavorite))
	fmt.Fprintf(w, "Pinned:   %s\n", onOff(n.IsPinned))
	fmt.Fprintf(w, "Updated:  %s\n", time.UnixMilli(n.UpdatedAt).Format(time.RFC3339))
	if n.Content != "" {
		fmt.Fprintf(w, "\n%s\n", n.Content)
	}
}

func writeHistory(w io.Writer, st notes.HistoryStatus) {
	fmt.Fprintf(w, "Position: %d/%d (capacity %d)\n", st.Index+1, st.Length, st.Capacity)
	fmt.Fprintf(w, "Undo: %s  Redo: %s\n", yesNo(st.CanUndo), yesNo(st.CanRedo))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
