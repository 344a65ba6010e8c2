package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mileusna/crontab"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/germanamz/modelgate/pkg/chats/chat"
	"github.com/germanamz/modelgate/pkg/models"
	"github.com/germanamz/modelgate/pkg/statusstore"
)

// refreshTimeout bounds one scheduled refresh.
const refreshTimeout = 2 * time.Minute

func runModels(_ context.Context, configPath, usageType string, out io.Writer) error {
	u, err := parseUsage(usageType)
	if err != nil {
		return err
	}

	a, err := newApp(configPath, u)
	if err != nil {
		return err
	}

	cat, err := a.gw.AvailableModels()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, modelsTable(cat, nil))
	return err
}

func runStatus(ctx context.Context, configPath, usageType string, out io.Writer) error {
	u, err := parseUsage(usageType)
	if err != nil {
		return err
	}

	a, err := newApp(configPath, u)
	if err != nil {
		return err
	}

	cat, err := a.gw.AvailableModels()
	if err != nil {
		return err
	}

	store := statusstore.NewMemoryStore()
	res, err := statusstore.NewRefresher(store, statusstore.WithLogger(a.log)).Refresh(ctx, cat)
	if err != nil {
		return err
	}

	statuses, _ := store.Snapshot()
	if _, err := fmt.Fprintln(out, modelsTable(cat, statuses)); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d/%d models online across %d providers", res.Online, res.Models, res.Providers))); err != nil {
		return err
	}

	now := time.Now()
	for _, c := range a.reg.Clients() {
		if info := c.RateLimit(); info != nil {
			if _, err := fmt.Fprintln(out, rateLimitLine(c.Provider().ID, info, now)); err != nil {
				return err
			}
		}
	}

	return nil
}

type chatOptions struct {
	model       string
	system      string
	attach      string
	prompt      string
	stream      bool
	render      bool
	search      bool
	interactive bool
	in          io.Reader
}

func (o chatOptions) conversation() *chat.Chat {
	c := chat.New(o.model, o.system)
	c.Stream = o.stream
	if o.search {
		c.Tools = map[string]bool{models.ToolWebSearch: true}
	}
	return c
}

func runChat(ctx context.Context, configPath string, opts chatOptions, out io.Writer) error {
	if opts.prompt == "" && !opts.interactive {
		return errors.New("chat: a prompt is required")
	}

	a, err := newApp(configPath, models.UsageDefault)
	if err != nil {
		return err
	}

	if opts.model == "" {
		cat, err := a.gw.AvailableModels()
		if err != nil {
			return err
		}
		m := cat.Default(models.MethodText)
		if m == nil {
			return fmt.Errorf("chat: -model is required: %w", models.ErrModelMissing)
		}
		opts.model = m.ID()
	}

	conv := opts.conversation()
	attachments := splitList(opts.attach)

	if !opts.interactive {
		return a.turn(ctx, conv, opts, opts.prompt, attachments, out)
	}

	if opts.in == nil {
		opts.in = os.Stdin
	}
	_, _ = fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("chatting with %s (/reset clears history, ctrl-d quits)", opts.model)))

	if opts.prompt != "" {
		if err := a.turn(ctx, conv, opts, opts.prompt, attachments, out); err != nil {
			return err
		}
		attachments = nil
	}

	scanner := bufio.NewScanner(opts.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/reset":
			conv.Reset()
			_, _ = fmt.Fprintln(out, dimStyle.Render("history cleared"))
			continue
		}

		if err := a.turn(ctx, conv, opts, line, attachments, out); err != nil {
			return err
		}
		attachments = nil
	}

	return scanner.Err()
}

// turn sends one user prompt and records the answer in conv. A provider
// failure is printed and reported as an error.
func (a *app) turn(ctx context.Context, conv *chat.Chat, opts chatOptions, prompt string, attachments []string, out io.Writer) error {
	req := conv.Ask(prompt, attachments...)

	var (
		final    models.Response
		streamed strings.Builder
		err      error
	)
	if opts.stream {
		err = a.gw.StreamPayload(ctx, req, func(r models.Response) bool {
			if r.IsDone || r.Failed() {
				final = r
			}
			if r.Failed() {
				return false
			}
			streamed.WriteString(r.Text())
			if !opts.render {
				_, _ = fmt.Fprint(out, r.Text())
			}
			return true
		})
		if !opts.render {
			_, _ = fmt.Fprintln(out)
		}
	} else {
		final, err = a.gw.SendPayload(ctx, req)
		if err == nil && !final.Failed() {
			streamed.WriteString(final.Text())
			if !opts.render {
				_, _ = fmt.Fprintln(out, final.Text())
			}
		}
	}
	if err != nil {
		return err
	}

	if final.Failed() {
		_, _ = fmt.Fprintln(out, errorBlockStyle.Render(final.Error))
		return errors.New("chat: provider request failed")
	}

	answer := streamed.String()
	conv.Reply(answer)

	if opts.render {
		_, _ = fmt.Fprintln(out, renderMarkdown(answer, 100))
	}

	if entry, ok := a.usage.Last(); ok {
		_, _ = fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%s · %s in / %s out",
			entry.Context.Model, fmtTokens(entry.Usage.PromptTokens), fmtTokens(entry.Usage.CompletionTokens))))
	}

	return nil
}

func runWatch(ctx context.Context, configPath, schedule, metricsAddr string) error {
	a, err := newApp(configPath, models.UsageDefault)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() { _ = srv.Close() }()
		a.log.Info().Str("addr", metricsAddr).Msg("serving metrics")
	}

	store := statusstore.NewMemoryStore()
	refresher := statusstore.NewRefresher(store, statusstore.WithLogger(a.log), statusstore.WithConcurrency(4))

	refresh := func() {
		jobCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()

		// Each run rebuilds the catalogue so fresh models are swept.
		a.reg.Rebuild()
		cat, err := a.gw.AvailableModels()
		if err != nil {
			a.log.Error().Err(err).Msg("load catalogue")
			return
		}
		if _, err := refresher.Refresh(jobCtx, cat); err != nil {
			a.log.Error().Err(err).Msg("refresh statuses")
		}
	}

	// execute once on start
	refresh()

	ctab := crontab.New()
	if err := ctab.AddJob(schedule, refresh); err != nil {
		return fmt.Errorf("watch: schedule %q: %w", schedule, err)
	}
	a.log.Info().Str("cron", schedule).Msg("status refresh scheduled")

	<-ctx.Done()
	ctab.Shutdown()

	return nil
}
