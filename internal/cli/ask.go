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
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/jedsmith2004/folio/internal/history"
	"github.com/jedsmith2004/folio/internal/markup"
	"github.com/jedsmith2004/folio/internal/session"
	"github.com/jedsmith2004/folio/internal/ui/styles"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		gateway string
		render  bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and stream the answer",
		Example: `  folio ask "What projects have you built?"
  folio ask --markup "Show me your resume"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if gateway != "" {
				a.cfg.Client.GatewayURL = gateway
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.ask(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), strings.Join(args, " "), render)
		},
	}
	cmd.Flags().StringVar(&gateway, "gateway", "", "gateway URL (overrides client.gateway_url)")
	cmd.Flags().BoolVar(&render, "markup", false, "render the finished answer instead of streaming raw text")
	return cmd
}

func (a *app) ask(ctx context.Context, out, errOut io.Writer, question string, render bool) error {
	log, closer, err := a.logger(errOut, a.cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	printer := newStreamPrinter(out)
	if render {
		printer = newStreamPrinter(io.Discard)
	}
	sess := newClientSession(a, printer).WithLogger(log)
	printer.attach(sess)

	reply, err := sess.Submit(ctx, question)
	if err != nil {
		return err
	}

	if render {
		card := ""
		if p, err := a.loadProfile(); err == nil {
			card = p.Card
		}
		theme := styles.NewThemeForProfile(ColorProfile(), termenv.HasDarkBackground())
		r := markup.NewRenderer(theme, markup.WithWidth(GetTerminalWidth()-2), markup.WithCard(card))
		fmt.Fprintln(out, r.RenderText(reply.Text))
	} else {
		fmt.Fprintln(out)
	}

	if reply.Err != nil && !errors.Is(reply.Err, context.Canceled) {
		return fmt.Errorf("ask failed: %w", reply.Err)
	}
	return nil
}

// newClientSession builds a chat session from the client config.
func newClientSession(a *app, sink session.Sink) *session.Session {
	c := a.cfg
	return session.New(session.NewClient(c.Client.GatewayURL), sink).
		WithLimits(history.Limits{MaxTurns: c.History.MaxTurns, MaxChars: c.History.MaxChars}).
		WithScrollDelay(time.Duration(c.Client.ScrollMS) * time.Millisecond)
}
