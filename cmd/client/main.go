// Package main is the operator console for the inventory API.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/FieldInventory/internal/client"
	"github.com/atinyakov/FieldInventory/internal/client/storage"
)

var (
	version   string
	buildDate string
)

const helpText = "Available commands: help, login, me, add, list, stats, alerts, backup, export <pdf|xlsx>, logout, exit"

// console holds the state shared by the commands.
type console struct {
	api      *client.Client
	sessions *storage.SessionStore
	prompt   *client.Prompter
	out      io.Writer
	outDir   string
}

// main parses command-line flags and runs one command, or the shell when
// no command is given.
func main() {
	var (
		baseURL     string
		caFile      string
		sessionPath string
		outDir      string
		showVer     bool
	)

	flag.StringVar(&baseURL, "url", "https://localhost:8080", "server base URL")
	flag.StringVar(&caFile, "ca", "certs/ca.crt", "path to CA cert (empty for system roots)")
	flag.StringVar(&sessionPath, "session", storage.DefaultSessionPath(), "path to the cached session")
	flag.StringVar(&outDir, "out", ".", "directory for exported reports")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Inventory Console\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	if _, err := os.Stat(caFile); err != nil {
		caFile = ""
	}
	hc, err := client.NewHTTPClient(caFile)
	if err != nil {
		log.Fatal(err)
	}

	c := &console{
		api:      client.New(baseURL, hc),
		sessions: storage.NewSessionStore(sessionPath),
		prompt:   client.NewPrompter(os.Stdin, os.Stdout),
		out:      os.Stdout,
		outDir:   outDir,
	}
	if s, err := c.sessions.Load(c.api.BaseURL); err == nil {
		c.api.Token = s.Token
	}

	ctx := context.Background()
	if args := flag.Args(); len(args) > 0 {
		if err := c.run(ctx, args); err != nil {
			log.Fatal(err)
		}
		return
	}
	c.repl(ctx, os.Stdin)
}

// repl runs the interactive shell loop.
func (c *console) repl(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "inventario> ")
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(c.out, "Bye")
			return
		}
		if err := c.run(ctx, args); err != nil {
			fmt.Fprintln(c.out, "error:", err)
		}
	}
}

func (c *console) run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	switch args[0] {
	case "help":
		fmt.Fprintln(c.out, helpText)
		return nil
	case "login":
		return c.login(ctx)
	case "logout":
		err := c.api.Logout(ctx)
		c.api.Token = ""
		if cerr := c.sessions.Clear(); cerr != nil {
			return cerr
		}
		if err != nil && !client.IsUnauthenticated(err) {
			return err
		}
		fmt.Fprintln(c.out, "Sesión cerrada")
		return nil
	}

	if c.api.Token == "" {
		return errors.New("not logged in, run 'login' first")
	}
	err := c.authed(ctx, args)
	if client.IsUnauthenticated(err) {
		_ = c.sessions.Clear()
		c.api.Token = ""
		return fmt.Errorf("%w (session cleared, run 'login' again)", err)
	}
	return err
}

func (c *console) authed(ctx context.Context, args []string) error {
	switch args[0] {
	case "me":
		u, err := c.api.Me(ctx)
		if err != nil {
			return err
		}
		return c.printJSON(u)
	case "add":
		in, err := c.prompt.Item()
		if err != nil {
			return err
		}
		item, err := c.api.CreateItem(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Item creado: %s\n", item.ID)
		return nil
	case "list":
		items, err := c.api.ListItems(ctx)
		if err != nil {
			return err
		}
		for _, it := range items {
			fmt.Fprintf(c.out, "%s  %-8s  %-30s  %-15s  %s\n", it.ID, it.DNI, it.Holder, it.Device, it.Condition)
		}
		fmt.Fprintf(c.out, "%d items\n", len(items))
		return nil
	case "stats":
		st, err := c.api.Stats(ctx)
		if err != nil {
			return err
		}
		return c.printJSON(st)
	case "alerts":
		alerts, err := c.api.Alerts(ctx)
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			fmt.Fprintln(c.out, "Sin alertas")
		}
		for _, a := range alerts {
			fmt.Fprintf(c.out, "[%s] %s\n", a.Type, a.Message)
		}
		return nil
	case "backup":
		file, err := c.api.Backup(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Backup creado: %s\n", file)
		return nil
	case "export":
		if len(args) < 2 {
			return errors.New("usage: export <pdf|xlsx>")
		}
		name, data, err := c.api.Export(ctx, args[1])
		if err != nil {
			return err
		}
		path := filepath.Join(c.outDir, filepath.Base(name))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Reporte guardado en %s\n", path)
		return nil
	default:
		return fmt.Errorf("unknown command %q. Type 'help' for a list of commands", args[0])
	}
}

func (c *console) login(ctx context.Context) error {
	username, err := c.prompt.Line("Usuario: ")
	if err != nil {
		return err
	}
	password, err := c.prompt.Password("Contraseña: ")
	if err != nil {
		return err
	}
	res, err := c.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	s := &storage.Session{
		BaseURL:   c.api.BaseURL,
		Username:  res.User.Username,
		Role:      string(res.User.Role),
		Token:     res.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}
	if err := c.sessions.Save(s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Fprintf(c.out, "Bienvenido, %s (%s)\n", res.User.FullName, res.User.Role)
	return nil
}

func (c *console) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, string(b))
	return nil
}
