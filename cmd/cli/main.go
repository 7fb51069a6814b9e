// Command cli is a terminal front end for the member API.
//
//	cli [-server URL] [-session FILE] register -name NAME -email EMAIL -picture FILE [-task TEXT ...]
//	cli login -email EMAIL
//	cli dashboard
//	cli logout
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/ovaphlow/pitchfork/service-member-go/internal/client"
	"github.com/ovaphlow/pitchfork/service-member-go/internal/validation"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ", ") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	_ = godotenv.Load()

	server := os.Getenv("MEMBER_API")
	if server == "" {
		server = "http://localhost:4567"
	}
	global := flag.NewFlagSet("cli", flag.ExitOnError)
	serverURL := global.String("server", server, "member API base URL")
	sessionPath := global.String("session", "", "session file (default: user config dir)")
	global.Usage = usage
	_ = global.Parse(os.Args[1:])
	if global.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	path := *sessionPath
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			fatal(err)
		}
		path = p
	}
	app := &app{
		api:   client.New(*serverURL),
		store: client.FileSessionStore{Path: path},
		in:    bufio.NewReader(os.Stdin),
		out:   os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := global.Args()
	var err error
	switch args[0] {
	case "register":
		err = app.register(ctx, args[1:])
	case "login":
		err = app.login(ctx, args[1:])
	case "dashboard":
		err = app.dashboard(ctx)
	case "logout":
		err = app.logout()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cli [-server URL] [-session FILE] register|login|dashboard|logout [flags]")
}

func fatal(err error) {
	var fe validation.FieldErrors
	if errors.As(err, &fe) {
		for _, line := range strings.Split(fe.Error(), "; ") {
			fmt.Fprintln(os.Stderr, "  "+line)
		}
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

type app struct {
	api   *client.Client
	store client.SessionStore
	in    *bufio.Reader
	out   io.Writer
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	picture := fs.String("picture", "", "profile picture file")
	var tasks stringList
	fs.Var(&tasks, "task", "a note (repeatable)")
	_ = fs.Parse(args)

	password, err := a.readPassword("Password: ")
	if err != nil {
		return err
	}
	req := client.RegisterRequest{
		Name:     *name,
		Email:    *email,
		Password: password,
		Tasks:    tasks,
	}
	if *picture != "" {
		f, err := os.Open(*picture)
		if err != nil {
			return err
		}
		defer f.Close()
		st, err := f.Stat()
		if err != nil {
			return err
		}
		req.Picture = f
		req.PictureName = filepath.Base(*picture)
		req.PictureSize = st.Size()
		req.PictureType = mime.TypeByExtension(strings.ToLower(filepath.Ext(*picture)))
	}

	msg, err := a.api.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	_ = fs.Parse(args)

	password, err := a.readPassword("Password: ")
	if err != nil {
		return err
	}
	s, err := client.LoginAndStore(ctx, a.api, a.store, *email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", s.Profile.Name)
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	s, err := client.Restore(ctx, a.api, a.store)
	if errors.Is(err, client.ErrNoSession) {
		return errors.New("not signed in; run `cli login`")
	}
	if err != nil {
		return err
	}
	p := s.Profile
	fmt.Fprintf(a.out, "Name:    %s\nEmail:   %s\nPicture: %s\n", p.Name, p.Email, p.ProfilePic)
	if len(p.Tasks) == 0 {
		fmt.Fprintln(a.out, "Tasks:   (none)")
		return nil
	}
	fmt.Fprintln(a.out, "Tasks:")
	for i, t := range p.Tasks {
		fmt.Fprintf(a.out, "  %d. %s\n", i+1, t)
	}
	return nil
}

func (a *app) logout() error {
	if err := a.store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// readPassword reads without echo on a terminal and a plain line otherwise.
func (a *app) readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if isTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
