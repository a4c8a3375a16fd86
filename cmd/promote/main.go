// Command promote grants admin or verified shop-owner rights to an account,
// creating the account first when it does not exist.
//
//	promote [-password secret] <email> <admin|shop-owner>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/example/coimbatore-discount/internal/app"
	"github.com/example/coimbatore-discount/internal/config"
	"github.com/example/coimbatore-discount/internal/logging"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

var isTerminal = term.IsTerminal

func main() {
	cfg := config.Load()
	if err := run(context.Background(), os.Args[1:], cfg, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, cfg *config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	fs.SetOutput(out)
	password := fs.String("password", "", "password for a newly created account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: promote [-password secret] <email> <admin|shop-owner>")
	}
	email := strings.TrimSpace(fs.Arg(0))
	role := fs.Arg(1)

	if *password == "" && isTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(out, "Password (used only if the account is new): ")
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		*password = string(pw)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	backend, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	account, created, err := backend.Deps.Accounts.Promote(ctx, email, *password, role)
	if err != nil {
		return err
	}

	verb := "promoted"
	if created {
		verb = "created and promoted"
	}
	fmt.Fprintf(out, "%s %s to %s (id %s)\n", verb, account.Email, role, account.ID)
	return nil
}
