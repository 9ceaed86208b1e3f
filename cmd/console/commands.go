package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/spec-kit/tr4ction-console/internal/domain"
	"github.com/spec-kit/tr4ction-console/internal/service"
)

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *pflag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, usage("%s: %v", fs.Name(), err)
	}
	if fs.NArg() != positional {
		return nil, usage("%s: esperados %d argumentos, recebidos %d", fs.Name(), positional, fs.NArg())
	}
	return fs.Args(), nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	email := fs.StringP("email", "e", "", "account email")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = a.promptLine("Email: "); err != nil {
			return err
		}
	}
	password, err := a.promptPassword()
	if err != nil {
		return err
	}

	user, err := a.auth.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	return a.out.emit(user, func(w io.Writer) {
		fmt.Fprintf(w, "Bem-vindo, %s (%s).\n", user.DisplayName(), user.Role)
	})
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	email := fs.StringP("email", "e", "", "account email")
	name := fs.StringP("name", "n", "", "founder name")
	company := fs.StringP("company", "c", "", "startup name")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = a.promptLine("Email: "); err != nil {
			return err
		}
	}
	if *name == "" {
		if *name, err = a.promptLine("Nome: "); err != nil {
			return err
		}
	}
	password, err := a.promptPassword()
	if err != nil {
		return err
	}

	user, err := a.auth.Register(ctx, domain.RegisterRequest{Email: *email, Password: password, Name: *name, CompanyName: *company})
	if err != nil {
		return err
	}
	return a.out.emit(user, func(w io.Writer) {
		fmt.Fprintf(w, "Conta criada. Bem-vindo, %s.\n", user.DisplayName())
	})
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet("logout"), args, 0); err != nil {
		return err
	}
	current, err := a.auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	if current == nil {
		fmt.Fprintln(a.errOut, "Nenhuma sessão ativa.")
	}
	return nil
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet("whoami"), args, 0); err != nil {
		return err
	}
	user, err := a.auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return &exitError{code: 3, msg: "Nenhuma sessão ativa. Execute `tr4ction login`."}
	}
	return a.out.emit(user, func(w io.Writer) { printUser(w, *user) })
}

func cmdMe(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet("me"), args, 0); err != nil {
		return err
	}
	user, err := a.auth.Me(ctx)
	if err != nil {
		return err
	}
	return a.out.emit(user, func(w io.Writer) { printUser(w, user) })
}

func printUser(w io.Writer, u domain.User) {
	fmt.Fprintf(w, "id\t%s\n", u.ID)
	fmt.Fprintf(w, "nome\t%s\n", u.Name)
	fmt.Fprintf(w, "email\t%s\n", u.Email)
	fmt.Fprintf(w, "papel\t%s\n", u.Role)
	if u.CompanyName != "" {
		fmt.Fprintf(w, "startup\t%s\n", u.CompanyName)
	}
}

func cmdTrails(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("trails")
	asAdmin := fs.Bool("admin", false, "list every trail (admin)")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	if *asAdmin {
		trails, err := a.trails.AdminTrails(ctx)
		if err != nil {
			return err
		}
		return a.out.emit(trails, func(w io.Writer) {
			fmt.Fprintln(w, "ID\tNOME\tETAPAS\tSTATUS")
			for _, t := range trails {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.ID, t.Name, t.StepsCount, t.Status)
			}
		})
	}

	trails, err := a.trails.FounderTrails(ctx)
	if err != nil {
		return err
	}
	return a.out.emit(trails, func(w io.Writer) {
		for _, t := range trails {
			fmt.Fprintf(w, "%s (%s)\t%d%%\n", t.Name, t.ID, domain.TrailPercent(t.Steps))
			for _, s := range t.Steps {
				fmt.Fprintf(w, "  %s %s\t%s\t%d%%\n", stepMark(s), s.ID, s.Name, s.Progress)
			}
		}
	})
}

func stepMark(s domain.Step) string {
	switch {
	case s.Completed:
		return "[x]"
	case s.Locked:
		return "[#]"
	default:
		return "[ ]"
	}
}

func cmdSchema(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("schema")
	setFile := fs.String("set", "", "replace the fields with the JSON array in this file (admin)")
	pos, err := parse(fs, args, 2)
	if err != nil {
		return err
	}

	var schema domain.StepSchema
	if *setFile != "" {
		data, err := os.ReadFile(*setFile)
		if err != nil {
			return fmt.Errorf("lendo %s: %w", *setFile, err)
		}
		var fields []domain.Field
		if err := json.Unmarshal(data, &fields); err != nil {
			return usage("%s não contém uma lista de campos: %v", *setFile, err)
		}
		schema, err = a.trails.UpdateStepSchema(ctx, pos[0], pos[1], fields)
		if err != nil {
			return err
		}
	} else {
		schema, err = a.trails.StepSchema(ctx, pos[0], pos[1])
		if err != nil {
			return err
		}
	}

	return a.out.emit(schema, func(w io.Writer) {
		fmt.Fprintf(w, "%s / %s\n", schema.TrailID, schema.StepName)
		fmt.Fprintln(w, "CAMPO\tTIPO\tOBRIGATÓRIO\tRÓTULO")
		for _, f := range schema.Fields {
			required := ""
			if f.Required {
				required = "sim"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Name, f.Type, required, f.Label)
		}
	})
}

func cmdProgress(ctx context.Context, a *app, args []string) error {
	pos, err := parse(newFlagSet("progress"), args, 2)
	if err != nil {
		return err
	}
	progress, err := a.trails.StepProgress(ctx, pos[0], pos[1])
	if err != nil {
		return err
	}
	return a.out.emit(progress, func(w io.Writer) {
		if progress.IsLocked {
			fmt.Fprintln(w, "Etapa bloqueada.")
		}
		if len(progress.FormData) == 0 {
			fmt.Fprintln(w, "Nenhuma resposta salva.")
			return
		}
		for _, k := range sortedKeys(progress.FormData) {
			fmt.Fprintf(w, "%s\t%v\n", k, progress.FormData[k])
		}
	})
}

func cmdSaveProgress(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("save-progress")
	fields := fs.StringArrayP("field", "f", nil, "answer as name=value (repeatable)")
	data := fs.String("data", "", "answers as a JSON object")
	skipCheck := fs.Bool("no-validate", false, "skip the required-field check")
	pos, err := parse(fs, args, 2)
	if err != nil {
		return err
	}

	formData := map[string]any{}
	if *data != "" {
		if err := json.Unmarshal([]byte(*data), &formData); err != nil {
			return usage("--data precisa ser um objeto JSON: %v", err)
		}
	}
	for _, f := range *fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return usage("--field espera nome=valor, recebido %q", f)
		}
		formData[strings.TrimSpace(name)] = value
	}

	var schema *domain.StepSchema
	if !*skipCheck {
		s, err := a.trails.StepSchema(ctx, pos[0], pos[1])
		if err != nil {
			return err
		}
		schema = &s
	}

	result, err := a.trails.SaveProgress(ctx, pos[0], pos[1], formData, schema)
	if err != nil {
		return err
	}
	return a.out.emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "Etapa %s salva: %d%%.\n", result.StepID, result.Progress)
	})
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export")
	dir := fs.StringP("dir", "d", ".", "destination directory")
	pos, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	path, err := a.trails.ExportXLSX(ctx, pos[0], *dir)
	if err != nil {
		return err
	}
	size := ""
	if info, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	return a.out.emit(map[string]string{"path": path, "size": size}, func(w io.Writer) {
		fmt.Fprintf(w, "Planilha salva em %s (%s).\n", path, size)
	})
}

func cmdChat(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("chat")
	trail := fs.String("trail", "", "scope the question to a trail")
	step := fs.String("step", "", "scope the question to a step")
	if err := fs.Parse(args); err != nil {
		return usage("chat: %v", err)
	}
	if fs.NArg() == 0 {
		return usage("chat: informe a pergunta")
	}

	resp, err := a.chat.Ask(ctx, domain.ChatRequest{Question: strings.Join(fs.Args(), " "), TrailID: *trail, StepID: *step})
	if err != nil {
		return err
	}
	return a.out.emit(resp, func(w io.Writer) {
		fmt.Fprintln(w, resp.Answer)
		if len(resp.Sources) > 0 {
			fmt.Fprintf(w, "\nFontes: %s\n", strings.Join(resp.Sources, ", "))
		}
	})
}

func cmdDocs(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return usage("docs: informe list, upload, delete, reindex ou reindex-all")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		if _, err := parse(newFlagSet("docs list"), rest, 0); err != nil {
			return err
		}
		list, err := a.knowledge.List(ctx)
		if err != nil {
			return err
		}
		return a.out.emit(list, func(w io.Writer) {
			fmt.Fprintln(w, "ID\tARQUIVO\tTRILHA\tETAPA\tVERSÃO\tENVIADO")
			for _, d := range list.Documents {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", d.ID, d.Filename, d.TrailID, d.StepID, d.Version, uploadedAgo(d.UploadedAt))
			}
			fmt.Fprintf(w, "%d documento(s)\n", list.Total)
		})

	case "upload":
		fs := newFlagSet("docs upload")
		req := service.UploadRequest{}
		fs.StringVar(&req.TrailID, "trail", "", "trail scope (default geral)")
		fs.StringVar(&req.StepID, "step", "", "step scope (default geral)")
		fs.StringVar(&req.Version, "version", "", "document version (default 1.0)")
		fs.StringVar(&req.Description, "description", "", "free-text description")
		pos, err := parse(fs, rest, 1)
		if err != nil {
			return err
		}
		result, err := a.knowledge.UploadFile(ctx, pos[0], req)
		if err != nil {
			return err
		}
		return a.out.emit(result, func(w io.Writer) {
			fmt.Fprintf(w, "%s indexado (%s): %d trecho(s) em %.0f ms.\n", result.Filename, result.DocumentID, result.ChunksIndexed, result.ProcessingTimeMS)
		})

	case "delete":
		pos, err := parse(newFlagSet("docs delete"), rest, 1)
		if err != nil {
			return err
		}
		result, err := a.knowledge.Delete(ctx, pos[0])
		if err != nil {
			return err
		}
		return a.out.emit(result, func(w io.Writer) {
			fmt.Fprintf(w, "Documento %s removido.\n", result.DocumentID)
		})

	case "reindex":
		pos, err := parse(newFlagSet("docs reindex"), rest, 1)
		if err != nil {
			return err
		}
		result, err := a.knowledge.Reindex(ctx, pos[0])
		if err != nil {
			return err
		}
		return a.out.emit(result, func(w io.Writer) {
			fmt.Fprintf(w, "Documento %s reindexado: %d trecho(s).\n", result.DocumentID, result.ChunksIndexed)
		})

	case "reindex-all":
		if _, err := parse(newFlagSet("docs reindex-all"), rest, 0); err != nil {
			return err
		}
		result, err := a.knowledge.ReindexAll(ctx)
		if err != nil {
			return err
		}
		return a.out.emit(result, func(w io.Writer) {
			fmt.Fprintf(w, "%d de %d documento(s) reindexados em %.0f ms.\n", result.SuccessCount, result.TotalDocuments, result.TotalTimeMS)
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  falha: %s\n", e)
			}
		})

	default:
		return usage("docs: subcomando desconhecido %q", sub)
	}
}

func uploadedAgo(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

func cmdFounders(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet("founders"), args, 0); err != nil {
		return err
	}
	rows, err := a.admin.FoundersProgress(ctx)
	if err != nil {
		return err
	}
	return a.out.emit(rows, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tNOME\tEMAIL\tTRILHA\tETAPA ATUAL\tPROGRESSO\tRISCO")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d%%\t%s\n", r.ID, r.Name, r.Email, r.TrailID, r.CurrentStep, r.Progress, r.Risk)
		}
	})
}

func cmdUnlock(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("unlock")
	trail := fs.String("trail", "", "trail id (default: the founder's current trail)")
	pos, err := parse(fs, args, 2)
	if err != nil {
		return err
	}
	result, err := a.admin.UnlockStep(ctx, pos[0], pos[1], *trail)
	if err != nil {
		return err
	}
	return a.out.emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "Etapa %s liberada para %s na trilha %s.\n", result.StepID, result.UserID, result.TrailID)
	})
}

func cmdHealth(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet("health"), args, 0); err != nil {
		return err
	}
	var status map[string]any
	if err := a.client.Get(ctx, "/health", &status); err != nil {
		return err
	}
	return a.out.emit(status, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %v\n", a.client.BaseURL(), status["status"])
	})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
