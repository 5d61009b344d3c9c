package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/stocklens/internal/client"
	"github.com/newthinker/stocklens/internal/query"
	"github.com/newthinker/stocklens/internal/render"
	"github.com/newthinker/stocklens/internal/session"
)

const shellHelp = `Commands:
  TICKER [DAYS] [MODEL]  analyze a stock, e.g. "AAPL", "msft 7 lstm"
  days N                 set the default horizon (7, 14 or 30)
  model NAME             set the default model (lstm or xgboost)
  output FORMAT          set the output format (text, json or yaml)
  status                 show the current selection and session state
  reset                  clear the last result
  help                   show this help
  quit                   exit
`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive analysis session",
	RunE:  runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	e, err := bootstrap()
	if err != nil {
		return err
	}
	defer e.close()

	format, err := render.ParseFormat(e.cfg.Output.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sh := &shell{
		session: session.New(e.client, e.log, e.metrics),
		log:     e.log,
		out:     cmd.OutOrStdout(),
		days:    e.cfg.Query.Days,
		model:   e.cfg.Query.Model,
		format:  format,
	}
	return sh.run(ctx, cmd.InOrStdin())
}

// shell is a line-oriented front end over one session.
type shell struct {
	session *session.Session
	log     *zap.Logger
	out     io.Writer

	days   int
	model  string
	format render.Format
}

var errQuit = errors.New("quit")

func (s *shell) run(ctx context.Context, in io.Reader) error {
	fmt.Fprint(s.out, "StockLens interactive session. Type \"help\" for commands.\n")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		fmt.Fprint(s.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if err := s.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(s.out, "%v\n", err)
			}
		}
	}
}

// exec runs one input line.
func (s *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	s.log.Debug("shell command", zap.String("command", fields[0]), zap.Int("args", len(fields)-1))

	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return errQuit
	case "help", "?":
		fmt.Fprint(s.out, shellHelp)
		return nil
	case "reset":
		s.session.Reset()
		return nil
	case "status":
		s.status()
		return nil
	case "days":
		if len(fields) != 2 {
			return fmt.Errorf("usage: days N")
		}
		days, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("days must be a number: %q", fields[1])
		}
		if _, err := query.Validate(query.Input{Ticker: "-", Days: days, Model: s.model}); err != nil {
			return errors.New(client.Message(err))
		}
		s.days = days
		return nil
	case "model":
		if len(fields) != 2 {
			return fmt.Errorf("usage: model NAME")
		}
		if _, err := query.Validate(query.Input{Ticker: "-", Days: s.days, Model: fields[1]}); err != nil {
			return errors.New(client.Message(err))
		}
		s.model = strings.ToLower(fields[1])
		return nil
	case "output":
		if len(fields) != 2 {
			return fmt.Errorf("usage: output FORMAT")
		}
		f, err := render.ParseFormat(fields[1])
		if err != nil {
			return errors.New(client.Message(err))
		}
		s.format = f
		return nil
	}

	return s.analyze(ctx, fields)
}

func (s *shell) analyze(ctx context.Context, fields []string) error {
	in := query.Input{Ticker: fields[0], Days: s.days, Model: s.model}
	if len(fields) > 1 {
		days, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("days must be a number: %q", fields[1])
		}
		in.Days = days
	}
	if len(fields) > 2 {
		in.Model = fields[2]
	}
	if len(fields) > 3 {
		return fmt.Errorf("too many arguments; type \"help\" for usage")
	}

	fmt.Fprintf(s.out, "Analyzing %s...\n", strings.ToUpper(strings.TrimSpace(in.Ticker)))
	snap, err := s.session.Submit(ctx, in)
	if err != nil {
		return errors.New(client.Message(err))
	}

	switch snap.State {
	case session.StateDisplaying:
		return render.Write(s.out, s.format, snap.Result)
	case session.StateFailed:
		return render.Error(s.out, snap.Err)
	}
	return nil
}

func (s *shell) status() {
	snap := s.session.Snapshot()
	fmt.Fprintf(s.out, "days=%d model=%s output=%s state=%s", s.days, s.model, s.format, snap.State)
	if snap.Query.Ticker != "" {
		fmt.Fprintf(s.out, " ticker=%s", snap.Query.Ticker)
	}
	fmt.Fprintln(s.out)
}
