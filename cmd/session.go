package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/moneymanager/renderer"
	"github.com/google/subcommands"
	"golang.org/x/term"
)

// readPassword reads a password from file, or prompts for it without echo
// when file is empty or "-".
func readPassword(file, prompt string) (string, error) {
	if file != "" && file != "-" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("cannot read password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// piped input: read a single line.
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", errors.New("no terminal available for the password prompt, use -password-file")
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("cannot read password: %w", err)
	}
	return string(pw), nil
}

type loginCmd struct {
	email        string
	passwordFile string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "open a session on the money manager backend" }
func (*loginCmd) Usage() string {
	return `mm login -email <email> [-password-file <file>]

  Logs in and stores the session for the next commands. The password is
  prompted for unless a file is given.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Account email.")
	f.StringVar(&c.passwordFile, "password-file", "", "File containing the password, '-' to prompt.")
}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" {
		fmt.Fprintln(os.Stderr, "Error: -email is required.")
		return subcommands.ExitUsageError
	}
	password, err := readPassword(c.passwordFile, "Password: ")
	if err != nil {
		return failure(err)
	}
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		s, err := a.account.Login(ctx, c.email, password)
		if err != nil {
			return failure(err)
		}
		fmt.Printf("Welcome %s.\n", s.DisplayName)
		return subcommands.ExitSuccess
	})
}

type registerCmd struct {
	name         string
	email        string
	passwordFile string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an account on the money manager backend" }
func (*registerCmd) Usage() string {
	return `mm register -name <name> -email <email> [-password-file <file>]

  Creates an account. If the backend opens a session right away it is stored,
  otherwise run 'mm login'.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Display name, at least 2 characters.")
	f.StringVar(&c.email, "email", "", "Account email.")
	f.StringVar(&c.passwordFile, "password-file", "", "File containing the password, '-' to prompt.")
}

func (c *registerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password, err := readPassword(c.passwordFile, "Password (6 characters min): ")
	if err != nil {
		return failure(err)
	}
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		loggedIn, err := a.account.Register(ctx, c.name, c.email, password)
		if err != nil {
			return failure(err)
		}
		if !loggedIn {
			fmt.Println("Registration successful. Run 'mm login' to continue.")
			return subcommands.ExitSuccess
		}
		fmt.Printf("Welcome %s.\n", a.sessions.Get().DisplayName)
		return subcommands.ExitSuccess
	})
}

type logoutCmd struct{}

func (*logoutCmd) Name() string             { return "logout" }
func (*logoutCmd) Synopsis() string         { return "forget the stored session" }
func (*logoutCmd) Usage() string            { return "mm logout\n" }
func (*logoutCmd) SetFlags(f *flag.FlagSet) {}

func (c *logoutCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		if err := a.account.Logout(ctx); err != nil {
			return failure(err)
		}
		fmt.Println("Logged out.")
		return subcommands.ExitSuccess
	})
}

type whoamiCmd struct{}

func (*whoamiCmd) Name() string             { return "whoami" }
func (*whoamiCmd) Synopsis() string         { return "display the stored session" }
func (*whoamiCmd) Usage() string            { return "mm whoami\n" }
func (*whoamiCmd) SetFlags(f *flag.FlagSet) {}

func (c *whoamiCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		s := a.sessions.Get()
		if !s.LoggedIn() {
			fmt.Println("Not logged in.")
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.Session(s, a.clock.Now()))
		return subcommands.ExitSuccess
	})
}
