// handoff-mint issues a handoff token the way the identity provider would,
// for exercising a local server without the CMS in the loop.
//
// The key is read from SECRET_HEX (a .env file in the working directory is
// honored). With --base-url the full login URL is printed instead of the bare
// token.
package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/DukeRupert/handoff/internal/domain"
	"github.com/DukeRupert/handoff/internal/handoff"
	"github.com/DukeRupert/handoff/internal/secret"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout, os.Getenv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer, getenv func(string) string) error {
	var (
		email   string
		userID  string
		ttl     time.Duration
		baseURL string
	)

	flagSet := pflag.NewFlagSet("handoff-mint", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.StringVarP(&email, "email", "e", "", "email address to embed in the token (required)")
	flagSet.StringVarP(&userID, "user-id", "u", "", "user ID to embed in the token (required)")
	flagSet.DurationVar(&ttl, "ttl", 5*time.Minute, "how long the token stays valid")
	flagSet.StringVar(&baseURL, "base-url", "", "print a login URL rooted here instead of the bare token")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if email == "" || userID == "" {
		return fmt.Errorf("--email and --user-id are required")
	}
	if ttl <= 0 {
		return fmt.Errorf("--ttl must be positive, got %s", ttl)
	}

	key, err := secret.ParseHex(getenv("SECRET_HEX"))
	if err != nil {
		return fmt.Errorf("SECRET_HEX: %w", err)
	}

	claim := domain.Claim{
		Email:  email,
		UserID: userID,
		Exp:    time.Now().Add(ttl).Unix(),
	}

	token, err := handoff.NewCodec(key).Seal(claim)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}

	if baseURL == "" {
		fmt.Fprintln(stdout, token)
		return nil
	}

	fmt.Fprintf(stdout, "%s/api/login?t=%s\n", strings.TrimRight(baseURL, "/"), url.QueryEscape(token))
	return nil
}
