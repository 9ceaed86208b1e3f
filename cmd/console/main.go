// console is the terminal client of the tr4ction platform: it signs in,
// walks the founder trails, talks to the mentor agent and runs the admin
// knowledge-base chores against the backend REST API.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/tr4ction-console/internal/apiclient"
	"github.com/spec-kit/tr4ction-console/internal/config"
	"github.com/spec-kit/tr4ction-console/internal/events"
	"github.com/spec-kit/tr4ction-console/internal/observability"
	"github.com/spec-kit/tr4ction-console/internal/service"
	"github.com/spec-kit/tr4ction-console/internal/session"
	"github.com/spec-kit/tr4ction-console/internal/worker"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			if msg := err.Error(); msg != "" {
				fmt.Fprintf(os.Stderr, "erro: %s\n", msg)
			}
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "erro: %v\n", err)
		os.Exit(1)
	}
}

// app carries everything a subcommand needs.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *observability.Metrics
	client    *apiclient.Client
	auth      *service.AuthService
	trails    *service.TrailService
	chat      *service.ChatService
	knowledge *service.KnowledgeService
	admin     *service.AdminService
	in        *os.File
	reader    *bufio.Reader
	out       *printer
	errOut    io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"login", "entra com email e senha", cmdLogin},
	{"register", "cria uma conta de founder e entra", cmdRegister},
	{"logout", "encerra a sessão local", cmdLogout},
	{"whoami", "mostra o usuário da sessão local", cmdWhoami},
	{"me", "consulta o perfil no servidor", cmdMe},
	{"trails", "lista as trilhas (--admin para a visão do admin)", cmdTrails},
	{"schema", "mostra ou atualiza o formulário de uma etapa", cmdSchema},
	{"progress", "mostra as respostas salvas de uma etapa", cmdProgress},
	{"save-progress", "salva as respostas de uma etapa", cmdSaveProgress},
	{"export", "baixa a planilha preenchida de uma trilha", cmdExport},
	{"chat", "pergunta ao mentor", cmdChat},
	{"docs", "gerencia a base de conhecimento (list|upload|delete|reindex|reindex-all)", cmdDocs},
	{"founders", "lista o progresso dos founders", cmdFounders},
	{"unlock", "libera uma etapa para um founder", cmdUnlock},
	{"health", "verifica se o servidor responde", cmdHealth},
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) error {
	var (
		apiURL   string
		logLevel string
		asJSON   bool
		stats    bool
	)

	flagSet := pflag.NewFlagSet("tr4ction", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&apiURL, "api-url", "", "backend base URL (default: TR4CTION_API_URL or http://127.0.0.1:8000)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level (default: LOG_LEVEL or warn)")
	flagSet.BoolVar(&asJSON, "json", false, "print results as JSON")
	flagSet.BoolVar(&stats, "stats", false, "print request counters after the command")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return usage("%v", err)
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(stderr, flagSet)
		return nil
	}

	name, rest := flagSet.Arg(0), flagSet.Args()[1:]
	cmd, ok := lookup(name)
	if !ok {
		return usage("comando desconhecido: %s", name)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuração inválida: %w", err)
	}
	if apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(apiURL, "/")
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	} else if os.Getenv("LOG_LEVEL") == "" {
		cfg.Logger.Level = "warn"
	}
	if os.Getenv("LOG_ENCODING") == "" {
		cfg.Logger.Encoding = "console"
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := session.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("sessão: %w", err)
	}
	defer closeStore()

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, stderr))

	metrics := observability.NewMetrics()
	client := apiclient.NewFromConfig(cfg.API, store,
		apiclient.WithLogger(logger),
		apiclient.WithMetrics(metrics),
		apiclient.WithDispatcher(dispatcher),
	)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		client:    client,
		auth:      service.NewAuthService(client, dispatcher, logger),
		trails:    service.NewTrailService(client),
		chat:      service.NewChatService(client),
		knowledge: service.NewKnowledgeService(client),
		admin:     service.NewAdminService(client),
		in:        stdin,
		reader:    bufio.NewReader(stdin),
		out:       newPrinter(stdout, asJSON),
		errOut:    stderr,
	}

	runErr := cmd.run(ctx, a, rest)
	if stats {
		printStats(stderr, metrics.Snapshot())
	}
	return describe(runErr)
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "tr4ction: cliente de terminal da plataforma tr4ction.\n\nUso:\n  tr4ction [flags] <comando> [args]\n\nComandos:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nFlags:\n")
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}

func printStats(w io.Writer, snap observability.Snapshot) {
	sections := []struct {
		title  string
		counts map[string]int64
	}{
		{"requests", snap.Requests},
		{"retries", snap.Retries},
		{"errors", snap.Errors},
	}
	for _, s := range sections {
		if len(s.counts) == 0 {
			continue
		}
		keys := make([]string, 0, len(s.counts))
		for k := range s.counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "%s:\n", s.title)
		for _, k := range keys {
			fmt.Fprintf(w, "  %-50s %d\n", k, s.counts[k])
		}
	}
}

// exitError carries a process exit code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func usage(format string, args ...any) error {
	return &exitError{code: 2, msg: fmt.Sprintf(format, args...)}
}

// describe maps client failures to exit codes. Session expiry is announced
// by the notification worker, so only the short message is repeated.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit
	}
	apiErr, ok := apiclient.AsError(err)
	if !ok {
		return err
	}
	switch apiErr.Kind {
	case apiclient.KindUnauthorized:
		return &exitError{code: 3, msg: apiErr.Message}
	case apiclient.KindConnectivity:
		return &exitError{code: 4, msg: apiErr.Message}
	case apiclient.KindCanceled:
		return &exitError{code: 130, msg: apiErr.Message}
	default:
		return &exitError{code: 1, msg: apiErr.Message}
	}
}
