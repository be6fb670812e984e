package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/logstore"
)

// entryView is the CLI rendering of an entry. Absent optional fields are
// omitted.
type entryView struct {
	OwnerID  string  `json:"owner_id"`
	ID       string  `json:"entry_id"`
	Action   string  `json:"action"`
	Status   string  `json:"status"`
	GroupID  *string `json:"group_id,omitempty"`
	SourceIP *string `json:"source_ip,omitempty"`
	Payload  *string `json:"payload,omitempty"`
	Tokens   *int32  `json:"tokens,omitempty"`
	Error    *string `json:"error,omitempty"`
}

// pageView is the CLI rendering of one list page.
type pageView struct {
	Entries    []entryView `json:"entries"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func viewOf(e entry.Entry) entryView {
	v := entryView{
		OwnerID: e.OwnerID.String(),
		ID:      e.ID.String(),
		Action:  e.ActionName(),
		Status:  e.Status.String(),
	}
	if g, ok := e.GroupID.Get(); ok {
		s := g.String()
		v.GroupID = &s
	}
	if ip, ok := e.SourceIP.Get(); ok {
		v.SourceIP = &ip
	}
	if p, ok := e.Payload.Get(); ok {
		s := string(p)
		v.Payload = &s
	}
	if t, ok := e.Tokens.Get(); ok {
		v.Tokens = &t
	}
	if msg, ok := e.ErrorMessage(); ok {
		v.Error = &msg
	}
	return v
}

func viewsOf(entries []entry.Entry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, viewOf(e))
	}
	return out
}

// renderEntry prints one entry as aligned key/value lines.
func renderEntry(v entryView) func(io.Writer) {
	return func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "owner_id:\t%s\n", v.OwnerID)
		fmt.Fprintf(tw, "entry_id:\t%s\n", v.ID)
		fmt.Fprintf(tw, "action:\t%s\n", v.Action)
		fmt.Fprintf(tw, "status:\t%s\n", v.Status)
		if v.GroupID != nil {
			fmt.Fprintf(tw, "group_id:\t%s\n", *v.GroupID)
		}
		if v.SourceIP != nil {
			fmt.Fprintf(tw, "source_ip:\t%s\n", *v.SourceIP)
		}
		if v.Payload != nil {
			fmt.Fprintf(tw, "payload:\t%s\n", *v.Payload)
		}
		if v.Tokens != nil {
			fmt.Fprintf(tw, "tokens:\t%d\n", *v.Tokens)
		}
		if v.Error != nil {
			fmt.Fprintf(tw, "error:\t%s\n", *v.Error)
		}
		tw.Flush()
	}
}

// renderTable prints entries one per line, newest first.
func renderTable(views []entryView, next string) func(io.Writer) {
	return func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(w, "No entries.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ENTRY_ID\tACTION\tSTATUS\tSOURCE_IP")
		for _, v := range views {
			ip := ""
			if v.SourceIP != nil {
				ip = *v.SourceIP
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.Action, v.Status, ip)
		}
		tw.Flush()
		if next != "" {
			fmt.Fprintf(w, "\nNext cursor: %s\n", next)
		}
	}
}

// parseID parses an entry or owner id flag.
func parseID(field, s string) (xid.ID, error) {
	if s == "" {
		return xid.NilID(), entry.NewValidationError(field, field+" is required")
	}
	id, err := xid.FromString(s)
	if err != nil {
		return xid.NilID(), entry.NewValidationError(field, fmt.Sprintf("invalid %s %q", field, s))
	}
	return id, nil
}

// withStore opens the environment, runs fn and closes the environment.
func withStore(ctx context.Context, opts *RootOptions, fn func(*logstore.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := openEnvironment(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env.store)
}

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Owner    string
	Group    string
	Action   string
	SourceIP string
	Payload  string
	Tokens   int32
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a new pending entry",
		Example: `  logbase create --owner cv37img5tppgl4002kb0 --action user.login --source-ip 10.0.0.1
  logbase create --owner cv37img5tppgl4002kb0 --action user.collect --payload '{"item":7}' --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner id (required)")
	cmd.Flags().StringVar(&opts.Group, "group", "", "group id (default: nil id)")
	cmd.Flags().StringVar(&opts.Action, "action", "", "action name (required)")
	cmd.Flags().StringVar(&opts.SourceIP, "source-ip", "", "client address")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "opaque payload")
	cmd.Flags().Int32Var(&opts.Tokens, "tokens", 0, "token count")

	return cmd
}

func runCreate(cmd *cobra.Command, opts *CreateOptions) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	owner, err := parseID(entry.FieldOwnerID, opts.Owner)
	if err != nil {
		return f.Fail("create failed", err)
	}
	group := xid.NilID()
	if opts.Group != "" {
		if group, err = parseID(entry.FieldGroupID, opts.Group); err != nil {
			return f.Fail("create failed", err)
		}
	}

	return withStore(cmd.Context(), opts.RootOptions, func(store *logstore.Store) error {
		e, err := store.Create(cmd.Context(), logstore.CreateInput{
			OwnerID:  owner,
			GroupID:  group,
			Action:   opts.Action,
			SourceIP: opts.SourceIP,
			Payload:  []byte(opts.Payload),
			Tokens:   opts.Tokens,
		})
		if err != nil {
			return f.Fail("create failed", err)
		}
		v := viewOf(e)
		return f.Success(v, renderEntry(v))
	})
}

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Owner  string
	ID     string
	Fields string
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "get",
		Short:         "Read one entry",
		Example:       `  logbase get --owner cv37img5tppgl4002kb0 --id cv37j0g5tppgl4002kbg --fields payload,tokens`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

			owner, err := parseID(entry.FieldOwnerID, opts.Owner)
			if err != nil {
				return f.Fail("get failed", err)
			}
			id, err := parseID(entry.FieldID, opts.ID)
			if err != nil {
				return f.Fail("get failed", err)
			}

			return withStore(cmd.Context(), opts.RootOptions, func(store *logstore.Store) error {
				e, err := store.GetOne(cmd.Context(), owner, id, entry.ParseFieldList(opts.Fields))
				if err != nil {
					return f.Fail("get failed", err)
				}
				v := viewOf(e)
				return f.Success(v, renderEntry(v))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner id (required)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "entry id (required)")
	cmd.Flags().StringVar(&opts.Fields, "fields", "", "comma-separated fields (default: all)")

	return cmd
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Owner   string
	ID      string
	Status  string
	Payload string
	Tokens  int32
	Error   string
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a pending entry",
		Long: `Set the status of a pending entry and optionally its payload, tokens or
error message. Entries in a terminal status (success or failure) are
frozen and reject every update.`,
		Example: `  logbase update --owner cv37img5tppgl4002kb0 --id cv37j0g5tppgl4002kbg --status success
  logbase update --owner cv37img5tppgl4002kb0 --id cv37j0g5tppgl4002kbg --status failure --error "denied"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner id (required)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "entry id (required)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "pending, success, failure (or 0, 1, -1)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "replacement payload")
	cmd.Flags().Int32Var(&opts.Tokens, "tokens", 0, "replacement token count")
	cmd.Flags().StringVar(&opts.Error, "error", "", "error message")
	_ = cmd.MarkFlagRequired("status")

	return cmd
}

func runUpdate(cmd *cobra.Command, opts *UpdateOptions) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	owner, err := parseID(entry.FieldOwnerID, opts.Owner)
	if err != nil {
		return f.Fail("update failed", err)
	}
	id, err := parseID(entry.FieldID, opts.ID)
	if err != nil {
		return f.Fail("update failed", err)
	}
	status, err := entry.ParseStatus(opts.Status)
	if err != nil {
		return f.Fail("update failed", err)
	}

	in := logstore.UpdateInput{OwnerID: owner, ID: id, Status: status}
	flags := cmd.Flags()
	if flags.Changed("payload") {
		payload := []byte(opts.Payload)
		in.Payload = &payload
	}
	if flags.Changed("tokens") {
		in.Tokens = &opts.Tokens
	}
	if flags.Changed("error") {
		in.Error = &opts.Error
	}

	return withStore(cmd.Context(), opts.RootOptions, func(store *logstore.Store) error {
		e, err := store.Update(cmd.Context(), in)
		if err != nil {
			return f.Fail("update failed", err)
		}
		v := viewOf(e)
		return f.Success(v, renderEntry(v))
	})
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Owner    string
	Fields   string
	PageSize int
	Cursor   string
	Action   string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Page through an owner's entries, newest first",
		Example: `  logbase list --owner cv37img5tppgl4002kb0 --page-size 20
  logbase list --owner cv37img5tppgl4002kb0 --cursor cv37j0g5tppgl4002kbg --action user.login`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner id (required)")
	cmd.Flags().StringVar(&opts.Fields, "fields", "", "comma-separated fields (default: all)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", logstore.DefaultPageSize, "entries per page")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "exclusive cursor from a previous page")
	cmd.Flags().StringVar(&opts.Action, "action", "", "restrict to one action name")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	owner, err := parseID(entry.FieldOwnerID, opts.Owner)
	if err != nil {
		return f.Fail("list failed", err)
	}

	in := logstore.ListInput{
		OwnerID:  owner,
		Fields:   entry.ParseFieldList(opts.Fields),
		PageSize: opts.PageSize,
	}
	if opts.Cursor != "" {
		cursor, err := parseID("cursor", opts.Cursor)
		if err != nil {
			return f.Fail("list failed", err)
		}
		in.Cursor = &cursor
	}
	if opts.Action != "" {
		in.Action = &opts.Action
	}

	return withStore(cmd.Context(), opts.RootOptions, func(store *logstore.Store) error {
		page, err := store.List(cmd.Context(), in)
		if err != nil {
			return f.Fail("list failed", err)
		}
		v := pageView{Entries: viewsOf(page.Entries)}
		if page.NextCursor != nil {
			v.NextCursor = page.NextCursor.String()
		}
		return f.Success(v, renderTable(v.Entries, v.NextCursor))
	})
}

// RecentOptions holds flags for the recent command.
type RecentOptions struct {
	*RootOptions
	Owner   string
	Fields  string
	Actions []string
}

// NewRecentCommand creates the recent command.
func NewRecentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List an owner's entries inside the recent window",
		Long: `List an owner's entries created inside the configured recent window
(store.recent_window), newest first, optionally restricted to up to 10
action names.`,
		Example: `  logbase recent --owner cv37img5tppgl4002kb0
  logbase recent --owner cv37img5tppgl4002kb0 --actions user.login,user.logout`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

			owner, err := parseID(entry.FieldOwnerID, opts.Owner)
			if err != nil {
				return f.Fail("recent failed", err)
			}

			return withStore(cmd.Context(), opts.RootOptions, func(store *logstore.Store) error {
				entries, err := store.ListRecent(cmd.Context(), owner, entry.ParseFieldList(opts.Fields), opts.Actions)
				if err != nil {
					return f.Fail("recent failed", err)
				}
				views := viewsOf(entries)
				return f.Success(views, renderTable(views, ""))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner id (required)")
	cmd.Flags().StringVar(&opts.Fields, "fields", "", "comma-separated fields (default: all)")
	cmd.Flags().StringSliceVar(&opts.Actions, "actions", nil, "action names to include (max 10)")

	return cmd
}
