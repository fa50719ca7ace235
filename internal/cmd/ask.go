package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/observability"
	"github.com/HendryAvila/aluconfig/internal/present"
	"github.com/HendryAvila/aluconfig/internal/server"
	"github.com/HendryAvila/aluconfig/internal/session"
	"github.com/HendryAvila/aluconfig/internal/syncer"
)

// PlatformCLI is recorded on sessions started from the terminal.
const PlatformCLI = "cli"

const askHelp = "número = escolher · b = respostas · b N = voltar à resposta N · r = recomeçar · q = sair"

type askOptions struct {
	serverURL string
	sessionID string
	noColor   bool
	watch     bool
	verbose   bool
}

func newAskCommand(o *options) *cobra.Command {
	f := askOptions{}
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Find a product through an interactive chat",
		Long: `Walk through the configurator questions in the terminal.

Type the number of an option to answer. "b" lists your answers, "b N" goes
back to the N-th answer, "r" starts over and "q" quits.

Without --server the session is stored locally; with it, the session lives
on a running "aluconfig serve" and can be resumed elsewhere with --session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			if f.serverURL == "" {
				f.serverURL = cfg.Remote.URL
			}
			logger, closeLog := o.logger(cfg, !f.verbose)
			defer func() { _ = closeLog() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			eng, err := server.NewEngine(cfg)
			if err != nil {
				return err
			}

			var remote syncer.Remote
			if f.serverURL != "" {
				remote = syncer.NewHTTPRemote(f.serverURL, cfg.Remote.Timeout)
			} else {
				backend, err := server.Open(ctx, cfg, logger)
				if err != nil {
					return err
				}
				defer backend.Close()
				remote = syncer.NewStoreRemote(backend.Store, backend.Notifier)
			}

			syn := syncer.New(remote, logger,
				syncer.WithPlatform(PlatformCLI),
				syncer.WithRecorder(observability.New()),
			)
			return runAsk(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), eng, syn, f)
		},
	}

	cmd.Flags().StringVar(&f.serverURL, "server", "", "session service URL (default: remote.url, else local store)")
	cmd.Flags().StringVar(&f.sessionID, "session", "", "resume an existing session")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "disable colours")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "follow changes made to the session elsewhere")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log to stderr")
	return cmd
}

// asker is one interactive conversation. sel holds only the user's own
// answers; out is the decision for sel.
type asker struct {
	eng  *engine.Engine
	sync *syncer.Synchronizer
	r    *present.Renderer
	w    io.Writer

	sel engine.Selections
	out engine.Outcome

	// written holds every selection this asker persisted, so their echoes
	// on the watch channel are not mistaken for changes made elsewhere.
	written map[string]bool
}

// runAsk starts or resumes a session and reads commands from in until
// "q" or end of input. Pending session writes are flushed before return.
func runAsk(ctx context.Context, in io.Reader, out io.Writer, eng *engine.Engine, syn *syncer.Synchronizer, opts askOptions) error {
	a := &asker{eng: eng, sync: syn, r: present.NewRenderer(out, eng, opts.noColor), w: out, written: map[string]bool{}}
	defer syn.Wait()

	if err := a.open(ctx, opts.sessionID); err != nil {
		return err
	}
	var changes <-chan session.Session
	if opts.watch {
		changes = a.follow(ctx)
	}

	a.r.Notice("%s", askHelp)
	a.show()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		fmt.Fprint(out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return <-scanErr
			}
			if a.handle(line) {
				return nil
			}
		case snap, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			a.external(snap)
		}
	}
}

func (a *asker) open(ctx context.Context, id string) error {
	if id == "" {
		a.sync.Start(ctx)
		a.out = a.eng.Decide(a.sel)
		a.sync.AppendMessage(session.RoleAssistant, present.Greeting)
		a.sync.AppendMessage(session.RoleAssistant, present.Closing(a.out))
		a.notice()
		return nil
	}

	a.sync.Resume(id)
	sess, err := a.sync.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("resuming session %s: %w", id, err)
	}
	if sess != nil {
		a.sel = a.eng.Normalize(sess.Selection)
	}
	a.out = a.eng.Decide(a.sel)
	a.notice()
	return nil
}

func (a *asker) notice() {
	a.r.Notice("sessão %s", a.sync.ID())
	if a.sync.Offline() {
		a.r.Warn("modo offline: as respostas não serão salvas")
	}
}

// follow opens the watch channel. A watch failure only disables
// following; the nil channel it returns never delivers.
func (a *asker) follow(ctx context.Context) <-chan session.Session {
	ch, err := a.sync.Watch(ctx)
	if err != nil || ch == nil {
		a.r.Warn("acompanhamento indisponível")
		return nil
	}
	return ch
}

// external adopts a selection changed by another client.
func (a *asker) external(snap session.Session) {
	sel := a.eng.Normalize(snap.Selection)
	if sel.Equal(a.sel) || a.written[sel.String()] {
		return
	}
	a.sel = sel
	a.out = a.eng.Decide(sel)
	fmt.Fprintln(a.w)
	a.r.Notice("respostas alteradas em outro dispositivo")
	a.show()
}

func (a *asker) show() {
	a.r.Outcome(a.sel, a.out)
	if a.out.IsFinal {
		fmt.Fprintln(a.w)
		a.r.Answers(a.sel)
	}
}

// handle runs one input line and reports whether to quit.
func (a *asker) handle(line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "q", "sair", "exit":
		return true
	case "?", "h", "ajuda":
		a.r.Notice("%s", askHelp)
	case "r":
		a.sync.AppendMessage(session.RoleUser, "Recomeçar")
		a.step(a.eng.Reset())
	case "b":
		a.back(fields[1:])
	default:
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			a.r.Warn("não entendi %q. %s", line, askHelp)
			return false
		}
		a.choose(n)
	}
	return false
}

func (a *asker) choose(n int) {
	q := a.out.PendingQuestion
	if q == nil {
		a.r.Warn("não há pergunta pendente: use b N para mudar uma resposta ou r para recomeçar")
		return
	}
	if n < 1 || n > len(q.Options) {
		a.r.Warn("escolha um número entre 1 e %d", len(q.Options))
		return
	}
	opt := q.Options[n-1]
	a.sync.AppendMessage(session.RoleUser, opt.Label)
	a.step(a.eng.Answer(a.sel, q.FacetID, opt.Value))
}

func (a *asker) back(args []string) {
	answers := a.eng.Answered(a.sel)
	if len(answers) == 0 {
		a.r.Warn("nenhuma resposta ainda")
		return
	}
	if len(args) == 0 {
		a.r.Answers(a.sel)
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(answers) {
		a.r.Warn("escolha uma resposta entre 1 e %d", len(answers))
		return
	}
	a.step(a.eng.Back(a.sel, answers[n-1].Facet.ID))
}

// step moves to sel, persists it and shows the new state.
func (a *asker) step(sel engine.Selections) {
	a.sel = sel
	a.out = a.eng.Decide(sel)
	a.written[sel.String()] = true
	a.sync.UpdateSelection(sel)
	a.sync.AppendMessage(session.RoleAssistant, present.Closing(a.out))
	a.show()
}
