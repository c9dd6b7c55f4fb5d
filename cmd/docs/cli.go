package main

import (
	"bufio"
	"context"
	"docingest/internal/client/api"
	"docingest/internal/client/humanize"
	"docingest/internal/client/listview"
	"docingest/internal/client/uploader"
	"docingest/internal/config"
	"docingest/internal/identity/supabase"
	"docingest/internal/models"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"
)

const usage = `
Usage:
   docs <ACTION> [FLAGS] [ARGS]

 ACTIONs:
   login    exchange a Supabase access token for a session token
   logout   revoke the session token
   upload   upload documents (.pdf, .docx, .txt) one after another
   watch    show your documents and follow changes live
   status   set a document's status (operator)
   users    list identity provider users (operator)
   delete-user
            delete an identity provider user by email (operator)

 Environment: DOCS_SERVER_URL, DOCS_TOKEN, REACTIVE_ADMIN_TOKEN,
              SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY

`

var (
	errUsage           = errors.New("invalid usage")
	errDeleteCancelled = errors.New("confirmation does not match, deletion cancelled")
)

type command func(ctx context.Context, cfg *config.Client, args []string, in io.Reader, out io.Writer) error

var commands = map[string]command{
	"login":  login,
	"logout": logout,
	"upload": upload,
	"watch":  watch,
	"status": status,
	"users":  users,

	"delete-user": deleteUser,
}

func run(ctx context.Context, cfg *config.Client, args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(errOut, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(errOut, "unknown action %q\n%s", args[0], usage)
		return 2
	}

	if err := cmd(ctx, cfg, args[1:], in, out); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(errOut, "%s: %s\n", args[0], err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}

	return 0
}

func newFlags(name string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	return flags
}

func parse(flags *flag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	return nil
}

func client(cfg *config.Client, token string) *api.Client {
	return api.New(api.Config{BaseURL: cfg.ServerURL, Token: token, Timeout: cfg.Timeout})
}

func login(ctx context.Context, cfg *config.Client, args []string, _ io.Reader, out io.Writer) error {
	flags := newFlags("login")
	providerToken := flags.String("supabase-token", os.Getenv("SUPABASE_ACCESS_TOKEN"), "Supabase access token")
	if err := parse(flags, args); err != nil {
		return err
	}

	if *providerToken == "" {
		return fmt.Errorf("%w: -supabase-token is required", errUsage)
	}

	resp, err := client(cfg, "").ExchangeToken(ctx, *providerToken)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Signed in as %s (%s)\n", resp.User.Email, resp.User.ID)
	fmt.Fprintf(out, "export DOCS_TOKEN=%s\n", resp.Token)

	return nil
}

func logout(ctx context.Context, cfg *config.Client, args []string, _ io.Reader, out io.Writer) error {
	if cfg.Token == "" {
		return fmt.Errorf("%w: DOCS_TOKEN is not set", errUsage)
	}

	if err := client(cfg, "").Logout(ctx, cfg.Token); err != nil {
		return err
	}

	fmt.Fprintln(out, "Signed out")

	return nil
}

func upload(ctx context.Context, cfg *config.Client, args []string, _ io.Reader, out io.Writer) error {
	flags := newFlags("upload")
	userID := flags.String("user", "", "owner user id")
	maxSize := flags.Int64("max-size", uploader.DefaultMaxSize, "per-file size limit in bytes")
	if err := parse(flags, args); err != nil {
		return err
	}

	if *userID == "" || flags.NArg() == 0 {
		return fmt.Errorf("%w: -user and at least one file are required", errUsage)
	}

	files := make([]uploader.File, 0, flags.NArg())
	for _, path := range flags.Args() {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		files = append(files, uploader.File{
			Name: filepath.Base(path),
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}

	up := uploader.New(slog.New(slog.NewTextHandler(io.Discard, nil)), client(cfg, ""), uploader.Options{
		MaxSize: *maxSize,
		OnProgress: func(name string, percent int) {
			fmt.Fprintf(out, "%3d%%  %s\n", percent, name)
		},
	})

	res := up.Upload(ctx, *userID, files)

	for _, r := range res.Rejected {
		fmt.Fprintln(out, r.Message)
	}

	for _, doc := range res.Uploaded {
		fmt.Fprintf(out, "uploaded %s (%s, %s)\n", doc.Name, doc.ID, doc.Status)
	}

	if recent := up.Recent(); len(recent) > 0 {
		fmt.Fprintln(out, "Recently uploaded:")
		for _, name := range recent {
			fmt.Fprintf(out, "  %s\n", name)
		}
	}

	return res.Err
}

func watch(ctx context.Context, cfg *config.Client, args []string, _ io.Reader, out io.Writer) error {
	flags := newFlags("watch")
	limit := flags.Int("limit", 0, "maximum number of documents shown")
	if err := parse(flags, args); err != nil {
		return err
	}

	if cfg.Token == "" {
		return fmt.Errorf("%w: DOCS_TOKEN is not set, run login first", errUsage)
	}

	stream, err := client(cfg, cfg.Token).Watch(ctx, *limit)
	if err != nil {
		return err
	}

	return listview.New(out).Run(ctx, stream)
}

func status(ctx context.Context, cfg *config.Client, args []string, _ io.Reader, out io.Writer) error {
	flags := newFlags("status")
	chunks := flags.Int("chunks", -1, "chunk count, omitted when negative")
	if err := parse(flags, args); err != nil {
		return err
	}

	if flags.NArg() != 2 {
		return fmt.Errorf("%w: status <document id> <uploading|processing|ready|error>", errUsage)
	}

	docID, st := flags.Arg(0), models.Status(flags.Arg(1))
	if !st.IsValid() {
		return fmt.Errorf("%w: %s", errUsage, models.ErrInvalidStatus)
	}

	var chunkCount *int
	if *chunks >= 0 {
		chunkCount = chunks
	}

	if err := client(cfg, cfg.AdminToken).UpdateStatus(ctx, docID, st, chunkCount); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s -> %s\n", docID, st)

	return nil
}

func users(ctx context.Context, cfg *config.Client, args []string, _ io.Reader, out io.Writer) error {
	flags := newFlags("users")
	page := flags.Int("page", 1, "page number")
	perPage := flags.Int("per-page", 50, "users per page")
	if err := parse(flags, args); err != nil {
		return err
	}

	if err := requireIdentity(cfg); err != nil {
		return err
	}

	res, err := identity(cfg).ListUsers(ctx, *page, *perPage)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tCREATED\tLAST SIGN IN")
	for _, u := range res.Users {
		lastSignIn := "never"
		if u.LastSignInAt != nil {
			lastSignIn = humanize.Date(u.LastSignInAt.UnixMilli())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Email, humanize.Date(u.CreatedAt.UnixMilli()), lastSignIn)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if res.Total > 0 {
		fmt.Fprintf(out, "\n%d users total\n", res.Total)
	} else {
		fmt.Fprintf(out, "\n%d users on page %d\n", len(res.Users), *page)
	}

	return nil
}

func deleteUser(ctx context.Context, cfg *config.Client, args []string, in io.Reader, out io.Writer) error {
	flags := newFlags("delete-user")
	email := flags.String("email", "", "email of the user to delete")
	yes := flags.Bool("yes", false, "skip the interactive confirmation")
	if err := parse(flags, args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("%w: -email is required", errUsage)
	}

	if err := requireIdentity(cfg); err != nil {
		return err
	}

	sb := identity(cfg)

	user, err := sb.UserByEmail(ctx, *email)
	if err != nil {
		return err
	}

	confirmed := "No"
	if user.EmailConfirmedAt != nil {
		confirmed = "Yes"
	}
	lastSignIn := "Never"
	if user.LastSignInAt != nil {
		lastSignIn = user.LastSignInAt.Format(time.RFC3339)
	}

	fmt.Fprintf(out, "Found user:\n  ID: %s\n  Email: %s\n  Created: %s\n  Email confirmed: %s\n  Last sign in: %s\n",
		user.ID, user.Email, user.CreatedAt.Format(time.RFC3339), confirmed, lastSignIn)

	if !*yes {
		answers := bufio.NewScanner(in)

		fmt.Fprint(out, "\nType the user's email to confirm deletion: ")
		if !answers.Scan() || strings.TrimSpace(answers.Text()) != user.Email {
			return errDeleteCancelled
		}

		fmt.Fprint(out, `Type "DELETE" to proceed: `)
		if !answers.Scan() || strings.TrimSpace(answers.Text()) != "DELETE" {
			return errDeleteCancelled
		}
	}

	if err := sb.DeleteUser(ctx, user.ID); err != nil {
		return err
	}

	fmt.Fprintf(out, "Deleted user %s\n", user.Email)

	return nil
}

func requireIdentity(cfg *config.Client) error {
	if cfg.SupabaseURL == "" || cfg.ServiceKey == "" {
		return fmt.Errorf("%w: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required", errUsage)
	}
	return nil
}

func identity(cfg *config.Client) *supabase.Client {
	return supabase.New(slog.New(slog.NewTextHandler(io.Discard, nil)), supabase.Config{
		URL:        cfg.SupabaseURL,
		ServiceKey: cfg.ServiceKey,
		Timeout:    cfg.Timeout,
	})
}
