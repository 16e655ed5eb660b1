package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/mailboard/internal/auth"
	"github.com/nhle/mailboard/internal/credential"
	"github.com/nhle/mailboard/internal/model"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store mail and AI credentials in the system keyring",
	Long: `Login asks for the mail provider and an optional Anthropic API key.

For Gmail it opens the Google consent page and stores the resulting OAuth
token. The client secret JSON must already exist at provider.gmail.client_secret_path.
For IMAP it asks for the server settings and stores the password.`,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	creds := credential.Keyring{}

	kind := cfg.Provider.Kind
	if kind == "" {
		kind = "gmail"
	}
	var apiKey string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Mail provider").
			Options(
				huh.NewOption("Gmail", "gmail"),
				huh.NewOption("IMAP", "imap"),
			).
			Value(&kind),
		huh.NewInput().
			Title("Anthropic API key").
			Description("Optional. Leave empty to keep the stored key.").
			EchoMode(huh.EchoModePassword).
			Value(&apiKey),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return err
	}

	if key := strings.TrimSpace(apiKey); key != "" {
		if err := creds.Set(credential.KeyAnthropic, key); err != nil {
			return fmt.Errorf("store API key: %w", err)
		}
	}

	cfg.Provider.Kind = kind
	switch kind {
	case "imap":
		if err := loginIMAP(ctx, creds); err != nil {
			return err
		}
	default:
		if err := loginGmail(cmd, creds); err != nil {
			return err
		}
	}

	if err := model.SaveConfig(cfgFile, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Credentials saved. Run \"mailboard\" to open your inbox.\n")
	return nil
}

func loginIMAP(ctx context.Context, creds credential.Store) error {
	c := &cfg.Provider.IMAP
	port := strconv.Itoa(c.Port)
	var password string

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("IMAP host").Value(&c.Host).Validate(required("host")),
		huh.NewInput().Title("Port").Value(&port).Validate(func(s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("port must be between 1 and 65535")
			}
			return nil
		}),
		huh.NewInput().Title("Username").Value(&c.Username).Validate(required("username")),
		huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password).Validate(required("password")),
		huh.NewInput().Title("Mailbox").Value(&c.Mailbox),
		huh.NewConfirm().Title("Use implicit TLS?").Value(&c.TLS),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return err
	}

	c.Port, _ = strconv.Atoi(strings.TrimSpace(port))
	c.Host = strings.TrimSpace(c.Host)
	if c.Mailbox == "" {
		c.Mailbox = "INBOX"
	}
	if err := creds.Set(credential.KeyIMAPPassword, password); err != nil {
		return fmt.Errorf("store IMAP password: %w", err)
	}
	return nil
}

func loginGmail(cmd *cobra.Command, creds credential.Store) error {
	oc, err := auth.LoadOAuthConfig(cfg.Provider.Gmail.ClientSecretPath)
	if err != nil {
		return fmt.Errorf("%w\n\nDownload an OAuth client secret (Desktop app) from Google Cloud "+
			"and save it as %s", err, cfg.Provider.Gmail.ClientSecretPath)
	}

	out := cmd.OutOrStdout()
	paste := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err == nil || line != "" {
			paste <- line
		}
	}()

	tok, err := auth.Login(cmd.Context(), oc, func(authURL string) {
		fmt.Fprintf(out, "Open this URL in your browser to grant access:\n\n  %s\n\n", authURL)
		fmt.Fprint(out, "Waiting for the browser redirect. If it cannot reach this machine, paste the code or redirect URL here: ")
	}, paste)
	if err != nil {
		return fmt.Errorf("gmail login: %w", err)
	}
	fmt.Fprintln(out)

	if err := auth.SaveToken(creds, tok); err != nil {
		return fmt.Errorf("store gmail token: %w", err)
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
