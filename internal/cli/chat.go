// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jedsmith2004/folio/internal/config"
	"github.com/jedsmith2004/folio/internal/export"
	"github.com/jedsmith2004/folio/internal/profile"
	"github.com/jedsmith2004/folio/internal/ui/chat"
	"github.com/jedsmith2004/folio/internal/ui/components"
	"github.com/jedsmith2004/folio/internal/ui/styles"
)

func newChatCmd(a *app) *cobra.Command {
	var (
		gateway string
		plain   bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a folio gateway",
		Long: `Open the full-screen chat client. With --plain, or when the terminal
cannot draw it, a line-based prompt with history is used instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gateway != "" {
				a.cfg.Client.GatewayURL = gateway
			}
			p, err := a.loadProfile()
			if err != nil {
				return err
			}
			if plain || !CanRunTUI() {
				return a.chatPlain(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), p)
			}
			return a.chatTUI(cmd.Context(), p)
		},
	}
	cmd.Flags().StringVar(&gateway, "gateway", "", "gateway URL (overrides client.gateway_url)")
	cmd.Flags().BoolVar(&plain, "plain", false, "use the line-based prompt")
	return cmd
}

// chatLogFile is where the full-screen client logs, since it owns the
// terminal.
func (a *app) chatLogFile() string {
	if a.cfg.Logging.File != "" {
		return a.cfg.Logging.File
	}
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chat.log")
}

// =============================================================================
// FULL SCREEN
// =============================================================================

func (a *app) chatTUI(ctx context.Context, p *profile.Profile) error {
	log, closer, err := a.logger(io.Discard, a.chatLogFile())
	if err != nil {
		return err
	}
	defer closer.Close()

	sink := chat.NewSink()
	sess := newClientSession(a, sink).WithLogger(log)

	m := chat.New(styles.NewTheme(), sess, chat.Options{
		Title:   p.Name,
		Tagline: p.Tagline,
		Card:    p.Card,
		Phrases: a.cfg.Client.Phrases,
		Timing:  components.TimingFromConfig(a.cfg.Client),
		Logger:  log,
	})

	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	sink.Attach(prog)

	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// =============================================================================
// LINE MODE
// =============================================================================

// lineEditor wraps liner with a persistent history file.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(e.historyFile); err == nil {
		e.line.ReadHistory(f)
		f.Close()
	}
	return e
}

func (e *lineEditor) read(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

func (e *lineEditor) close() {
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

func (a *app) chatPlain(ctx context.Context, out, errOut io.Writer, p *profile.Profile) error {
	log, closer, err := a.logger(errOut, a.cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	printer := newStreamPrinter(out)
	sess := newClientSession(a, printer).WithLogger(log)
	printer.attach(sess)

	editor := newLineEditor()
	defer editor.close()

	fmt.Fprintf(out, "Chatting with %s. /clear resets, /export [md|json] saves, /quit exits.\n", p.Name)
	lastModel := ""
	for {
		input, err := editor.read("you> ")
		if err != nil {
			// Ctrl+C at the prompt or end of input.
			fmt.Fprintln(out)
			return nil
		}
		input = strings.TrimSpace(input)

		switch {
		case input == "":
			continue
		case input == "/quit" || strings.EqualFold(input, "exit"):
			return nil
		case input == "/clear":
			if err := sess.Reset(); err != nil {
				fmt.Fprintln(errOut, styles.RenderError(err.Error()))
			}
			continue
		case input == "/export" || strings.HasPrefix(input, "/export "):
			format := strings.TrimSpace(strings.TrimPrefix(input, "/export"))
			path, err := saveTranscript(export.FromSession(p.Name, lastModel, sess.View()), format, p.Card)
			if err != nil {
				fmt.Fprintln(errOut, styles.RenderError(err.Error()))
			} else {
				fmt.Fprintln(out, styles.RenderMuted("Saved "+path))
			}
			continue
		}

		printer.reset()
		fmt.Fprint(out, "assistant> ")

		msgCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		reply, err := sess.Submit(msgCtx, input)
		stop()
		fmt.Fprintln(out)
		if reply.Model != "" {
			lastModel = reply.Model
		}

		switch {
		case err != nil:
			fmt.Fprintln(errOut, styles.RenderError(err.Error()))
		case reply.Err != nil && !errors.Is(reply.Err, context.Canceled):
			fmt.Fprintln(errOut, styles.RenderMuted(reply.Err.Error()))
		}
	}
}

// saveTranscript writes t to the current directory in format.
func saveTranscript(t *export.Transcript, format, card string) (string, error) {
	opts := export.DefaultOptions()
	opts.Card = card
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return "", err
	}
	return export.ExportToFile(t, exporter, opts)
}
