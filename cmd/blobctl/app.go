package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/koustreak/blobgate/internal/client"
	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/logger"
)

const usage = `usage: blobctl [flags] <command> [args]

commands:
  config set <endpoint> [token]   save connection settings
  config show                     print connection settings
  ls [prefix]                     list files, newest first
  put <file> [key]                upload a file
  rm <key>                        delete a file
  mv <old> <new>                  rename a file
  get <key> [dest]                download a file
  cat <key>                       print a text or image preview
  url <key>                       print the direct URL of a file
  notes ls                        list notes
  notes rm <id>                   delete a note

flags:
`

var errUsage = errors.New("invalid usage")

type app struct {
	configPath string
	cfg        client.Config
	c          *client.Client
	out        io.Writer
	errOut     io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("blobctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	defaultPath, _ := client.DefaultConfigPath()
	configPath := fs.String("config", defaultPath, "client config file")
	endpoint := fs.String("endpoint", os.Getenv("BLOBGATE_ENDPOINT"), "proxy URL, overrides the config file")
	token := fs.String("token", os.Getenv("BLOBGATE_TOKEN"), "API token, overrides the config file")
	verbose := fs.Bool("v", false, "log each request")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := client.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *endpoint != "" {
		cfg.EndpointURL = *endpoint
	}
	if *token != "" {
		cfg.APIToken = *token
	}

	log := logger.Nop()
	if *verbose {
		log = logger.New(&logger.Config{Level: "debug", Format: "console", Output: stderr})
	}

	a := &app{
		configPath: *configPath,
		cfg:        cfg,
		c:          client.New(cfg, client.WithLogger(log)),
		out:        stdout,
		errOut:     stderr,
	}

	err = a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fs.Usage()
		return 2
	case errs.IsNotConfigured(err):
		fmt.Fprintln(stderr, "blobctl: no endpoint configured, run `blobctl config set <endpoint> [token]`")
		return 1
	default:
		fmt.Fprintf(stderr, "blobctl: %v\n", err)
		return 1
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "config":
		return a.config(args)
	case "ls":
		return a.list(ctx, optional(args, 0))
	case "put":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		key := optional(args, 1)
		if key == "" {
			key = filepath.Base(args[0])
		}
		return a.put(ctx, args[0], key)
	case "rm":
		if len(args) != 1 {
			return errUsage
		}
		if err := a.c.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted %s\n", args[0])
		return nil
	case "mv":
		if len(args) != 2 {
			return errUsage
		}
		if err := a.c.Rename(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "renamed %s -> %s\n", args[0], args[1])
		return nil
	case "get":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		return a.get(ctx, args[0], optional(args, 1))
	case "cat":
		if len(args) != 1 {
			return errUsage
		}
		return a.cat(ctx, args[0])
	case "url":
		if len(args) != 1 {
			return errUsage
		}
		if !a.cfg.Configured() {
			return client.ErrNotConfigured
		}
		fmt.Fprintln(a.out, a.c.FileURL(args[0]))
		return nil
	case "notes":
		return a.notes(ctx, args)
	default:
		return errUsage
	}
}

func (a *app) config(args []string) error {
	switch {
	case len(args) >= 2 && len(args) <= 3 && args[0] == "set":
		cfg := client.Config{EndpointURL: args[1], APIToken: optional(args, 2)}
		if err := client.SaveConfig(a.configPath, cfg); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "saved %s\n", a.configPath)
		return nil
	case len(args) == 1 && args[0] == "show":
		token := "(none)"
		if a.cfg.APIToken != "" {
			token = "(set)"
		}
		fmt.Fprintf(a.out, "endpoint: %s\ntoken:    %s\n", a.cfg.EndpointURL, token)
		return nil
	default:
		return errUsage
	}
}

func (a *app) list(ctx context.Context, prefix string) error {
	res, err := a.c.List(ctx, prefix)
	if err != nil {
		return err
	}
	client.SortByNewest(res.Files)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, f := range res.Files {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.LastModified.Local().Format("2006-01-02 15:04"), client.FormatSize(f.Size), f.Key)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if res.Truncated {
		fmt.Fprintln(a.errOut, "(listing truncated by the proxy, narrow the prefix)")
	}
	return nil
}

func (a *app) put(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	total := client.FormatSize(st.Size())
	res, err := a.c.Upload(ctx, key, f, st.Size(), "", func(sent, _ int64) {
		fmt.Fprintf(a.errOut, "\r%s / %s", client.FormatSize(sent), total)
	})
	fmt.Fprintln(a.errOut)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "uploaded %s (%s)\n", res.Key, client.FormatSize(res.Size))
	return nil
}

func (a *app) get(ctx context.Context, key, dest string) error {
	if dest == "" {
		dest = filepath.Base(key)
	}
	body, _, err := a.c.Download(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "saved %s (%s)\n", dest, client.FormatSize(n))
	return nil
}

func (a *app) cat(ctx context.Context, key string) error {
	p, err := a.c.Preview(ctx, key)
	if err != nil {
		return err
	}
	if p.Kind == client.PreviewImage {
		fmt.Fprintln(a.out, p.URL)
		return nil
	}
	_, err = io.WriteString(a.out, p.Text())
	return err
}

func (a *app) notes(ctx context.Context, args []string) error {
	switch {
	case len(args) == 1 && args[0] == "ls":
		notes, err := a.c.ListNotes(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, n := range notes {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", n.ID, n.UpdatedAt.Local().Format("2006-01-02 15:04"), n.Title)
		}
		return tw.Flush()
	case len(args) == 2 && args[0] == "rm":
		if err := a.c.DeleteNote(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted note %s\n", args[1])
		return nil
	default:
		return errUsage
	}
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
