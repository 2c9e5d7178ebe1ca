package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"portfolio-chat/internal/config"
	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/ui"
	"portfolio-chat/internal/usecase"
)

const tuiTitle = "Portfolio assistant"

// rootFlags override the environment configuration when set explicitly.
type rootFlags struct {
	host         string
	offline      bool
	fallbacks    []string
	timeout      time.Duration
	welcome      string
	historyLimit int
	store        string
	storePath    string
	table        string
	plain        bool
	open         bool
}

type cli struct {
	flags      rootFlags
	loadConfig func() (*config.Config, error)
	isTerminal func() bool
}

func newRootCommand() *cobra.Command {
	c := &cli{loadConfig: config.Load, isTerminal: stdioIsTerminal}
	return c.command()
}

func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "portfolio-chat",
		Short: "Chat with the portfolio assistant from the terminal",
		Long: `Chat with the portfolio assistant.

Without a subcommand an interactive chat pane is started when stdin and
stdout are terminals; otherwise each input line is sent as one message.
History is kept in the configured store under "chatbot_history_v1".

Examples:
  portfolio-chat                       # interactive chat
  portfolio-chat --offline             # keyword replies, no network
  echo "hello" | portfolio-chat        # line mode
  portfolio-chat ask "show me github"  # one exchange
  portfolio-chat history show --json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.runChat,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.host, "host", "", "host name used to choose the local or production backend")
	pf.BoolVar(&c.flags.offline, "offline", false, "answer with keyword replies instead of the chat backend")
	pf.StringSliceVar(&c.flags.fallbacks, "fallback", nil, "fallback backend base URLs tried after the primary (empty disables)")
	pf.DurationVar(&c.flags.timeout, "timeout", 0, "per-request timeout for the chat backend (0 disables)")
	pf.StringVar(&c.flags.welcome, "welcome", "", "welcome message shown when there is no history")
	pf.IntVar(&c.flags.historyLimit, "history-limit", usecase.DefaultHistoryLimit, "number of messages kept in history")
	pf.StringVar(&c.flags.store, "store", "", "state backend: memory, file, sqlite, dynamodb or redis")
	pf.StringVar(&c.flags.storePath, "store-path", "", "directory (file) or database path (sqlite) for state")
	pf.StringVar(&c.flags.table, "table", "", "DynamoDB table for the dynamodb backend")

	root.Flags().BoolVar(&c.flags.plain, "plain", false, "use line mode even on a terminal")
	root.Flags().BoolVar(&c.flags.open, "open", false, "start with the chat panel open")

	root.AddCommand(c.askCommand(), c.historyCommand(), c.feedbackCommand())
	return root
}

// apply copies explicitly set flags over cfg.
func (f *rootFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("host") {
		cfg.Chat.Host = f.host
	}
	if fs.Changed("offline") {
		cfg.Chat.Offline = f.offline
	}
	if fs.Changed("fallback") {
		cfg.Chat.FallbackURLs = f.fallbacks
	}
	if fs.Changed("timeout") {
		if f.timeout < 0 {
			return fmt.Errorf("invalid --timeout %s: must not be negative", f.timeout)
		}
		cfg.Chat.RequestTimeout = f.timeout
	}
	if fs.Changed("welcome") {
		cfg.Chat.Welcome = strings.TrimSpace(f.welcome)
	}
	if fs.Changed("history-limit") {
		if err := config.ValidateHistoryLimit(f.historyLimit); err != nil {
			return fmt.Errorf("invalid --history-limit: %w", err)
		}
		cfg.Chat.HistoryLimit = f.historyLimit
	}
	if fs.Changed("store") {
		cfg.Store.Backend = f.store
		// The default path depends on the backend.
		if !fs.Changed("store-path") && !cfg.Store.PathFromEnv {
			cfg.Store.Path = ""
		}
	}
	if fs.Changed("store-path") {
		cfg.Store.Path = f.storePath
	}
	if fs.Changed("table") {
		cfg.Store.Table = f.table
	}
	return cfg.Store.Normalize()
}

// start builds the app for one command. Interactive sessions own the
// terminal, so their logs go to the log file or nowhere.
func (c *cli) start(cmd *cobra.Command, interactive bool) (*app, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := c.flags.apply(cmd, cfg); err != nil {
		return nil, err
	}
	var logOut io.Writer = cmd.ErrOrStderr()
	if interactive {
		logOut = nil
	}
	return newApp(cmd.Context(), cfg, logOut)
}

func closeApp(a *app, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

func (c *cli) runChat(cmd *cobra.Command, _ []string) (err error) {
	interactive := !c.flags.plain && c.isTerminal()
	a, err := c.start(cmd, interactive)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	if interactive {
		return runTUI(cmd.Context(), a, c.flags.open)
	}
	return runLines(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
}

func runTUI(ctx context.Context, a *app, open bool) error {
	screen := ui.NewScreen()
	w, err := a.widget(ctx, screen)
	if err != nil {
		return err
	}
	w.LoadHistory(ctx)
	if open {
		w.Open()
	}

	p := tea.NewProgram(ui.NewModel(ctx, w, screen, tuiTitle), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run chat pane: %w", err)
	}
	return nil
}

func runLines(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	w, err := a.widget(ctx, ui.NewPlainView(out))
	if err != nil {
		return err
	}
	w.LoadHistory(ctx)
	w.Open()
	return ui.RunPlain(ctx, w, in)
}

func (c *cli) askCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the exchange",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := c.start(cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			ctx := cmd.Context()
			view := ui.NewPlainView(cmd.OutOrStdout())
			w, err := a.widget(ctx, view)
			if err != nil {
				return err
			}
			// Restore history so the exchange is appended to it, without
			// echoing the earlier conversation.
			view.SetQuiet(true)
			w.LoadHistory(ctx)
			view.SetQuiet(false)

			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("message must not be blank")
			}
			return w.Submit(ctx, text)
		},
	}
}

func (c *cli) historyCommand() *cobra.Command {
	history := &cobra.Command{
		Use:   "history",
		Short: "Inspect the stored chat history",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored chat history, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := c.start(cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			msgs, err := usecase.ReadHistory(cmd.Context(), a.store, a.cfg.Chat.HistoryLimit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), nonNil(msgs))
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored history")
				return nil
			}
			view := ui.NewPlainView(cmd.OutOrStdout())
			for _, m := range msgs {
				view.AppendMessage(m)
			}
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print the stored JSON array")

	history.AddCommand(show)
	return history
}

func (c *cli) feedbackCommand() *cobra.Command {
	feedback := &cobra.Command{
		Use:   "feedback",
		Short: "Leave or review visitor feedback",
	}

	var in usecase.FeedbackInput
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Record a feedback entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := c.start(cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			svc, err := usecase.NewFeedbackService(a.store, usecase.DefaultFeedbackLimit, usecase.WithFeedbackLogger(a.log))
			if err != nil {
				return err
			}
			fb, err := svc.Submit(cmd.Context(), in)
			if err != nil {
				var ue *usecase.Error
				if errors.As(err, &ue) && ue.Code == usecase.ErrorInvalidInput {
					return fmt.Errorf("invalid feedback: %s", ue.Reason)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "feedback recorded: %s\n", fb.ID)
			return nil
		},
	}
	submit.Flags().StringVar(&in.Name, "name", "", "your name (required)")
	submit.Flags().StringVar(&in.Email, "email", "", "contact address")
	submit.Flags().StringVar(&in.Message, "message", "", "feedback text (required)")
	submit.Flags().IntVar(&in.Rating, "rating", 0, "rating from 1 to 5")

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Print stored feedback, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := c.start(cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			svc, err := usecase.NewFeedbackService(a.store, usecase.DefaultFeedbackLimit, usecase.WithFeedbackLogger(a.log))
			if err != nil {
				return err
			}
			items, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), nonNil(items))
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "no feedback yet")
				return nil
			}
			for _, fb := range items {
				printFeedback(out, fb)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print the stored JSON array")

	feedback.AddCommand(submit, list)
	return feedback
}

func printFeedback(out io.Writer, fb domain.Feedback) {
	header := fmt.Sprintf("%s  %s", fb.CreatedAt.Format(time.RFC3339), fb.Name)
	if fb.Email != "" {
		header += fmt.Sprintf(" <%s>", fb.Email)
	}
	if fb.Rating > 0 {
		header += fmt.Sprintf("  %d/5", fb.Rating)
	}
	fmt.Fprintln(out, header)
	fmt.Fprintf(out, "  %s\n", fb.Message)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func stdioIsTerminal() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
