// Package config is the settings view: a huh form over the YAML
// configuration plus the IMAP password kept in the keyring.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/credential"
	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/theme"
)

// SavedMsg reports the outcome of saving. Restart is set when a changed
// setting only takes effect on the next start.
type SavedMsg struct {
	Config  *model.AppConfig
	Restart bool
	Err     error
}

// CancelMsg is dispatched when the user leaves without saving.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	kind         string
	pageSize     string
	pollInterval string

	imapHost     string
	imapPort     string
	imapUsername string
	imapMailbox  string
	imapPassword string
	imapTLS      bool

	clientSecret string

	aiModel    string
	aiBaseURL  string
	debounceMS string
	batchSize  string
}

// Model is the Bubble Tea model for the settings form.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	current *model.AppConfig
	path    string
	creds   credential.Store
	width   int
	height  int
}

// New creates a settings view writing to path and storing secrets in creds.
func New(path string, creds credential.Store, width, height int) Model {
	return Model{
		fb:     &formBindings{},
		path:   path,
		creds:  creds,
		width:  width,
		height: height,
	}
}

// Start loads cfg into the form.
func (m *Model) Start(cfg *model.AppConfig) tea.Cmd {
	m.current = cfg
	*m.fb = formBindings{
		kind:         cfg.Provider.Kind,
		pageSize:     strconv.Itoa(cfg.Provider.PageSize),
		pollInterval: strconv.Itoa(cfg.Provider.PollIntervalSec),
		imapHost:     cfg.Provider.IMAP.Host,
		imapPort:     strconv.Itoa(cfg.Provider.IMAP.Port),
		imapUsername: cfg.Provider.IMAP.Username,
		imapMailbox:  cfg.Provider.IMAP.Mailbox,
		imapTLS:      cfg.Provider.IMAP.TLS,
		clientSecret: cfg.Provider.Gmail.ClientSecretPath,
		aiModel:      cfg.AI.Model,
		aiBaseURL:    cfg.AI.BaseURL,
		debounceMS:   strconv.Itoa(cfg.Classify.DebounceMS),
		batchSize:    strconv.Itoa(cfg.Classify.BatchSize),
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the settings form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m, m.save()
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

func (m *Model) buildForm() *huh.Form {
	isIMAP := func() bool { return m.fb.kind == "imap" }

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Options(
					huh.NewOption("Gmail", "gmail"),
					huh.NewOption("IMAP", "imap"),
				).
				Value(&m.fb.kind),
			huh.NewInput().
				Title("Page size").
				Description("Messages per listing page").
				Value(&m.fb.pageSize).
				Validate(validateRange("Page size", 1, 500)),
			huh.NewInput().
				Title("Poll interval (seconds)").
				Description("0 disables new-mail checks").
				Value(&m.fb.pollInterval).
				Validate(validateRange("Poll interval", 0, 86400)),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&m.fb.imapHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&m.fb.imapPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Placeholder("user@example.com").
				Value(&m.fb.imapUsername).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Mailbox").
				Placeholder("INBOX").
				Value(&m.fb.imapMailbox),
			huh.NewInput().
				Title("Password").
				Description("Leave empty to keep the stored password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.imapPassword),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&m.fb.imapTLS),
		).WithHideFunc(func() bool { return !isIMAP() }),
		huh.NewGroup(
			huh.NewInput().
				Title("OAuth client secret").
				Description("Path to client_secret.json from Google Cloud").
				Value(&m.fb.clientSecret).
				Validate(validateRequired("Client secret path")),
		).WithHideFunc(isIMAP),
		huh.NewGroup(
			huh.NewInput().
				Title("Model").
				Value(&m.fb.aiModel).
				Validate(validateRequired("Model")),
			huh.NewInput().
				Title("API base URL").
				Value(&m.fb.aiBaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Classification delay (ms)").
				Value(&m.fb.debounceMS).
				Validate(validateRange("Delay", 0, 60000)),
			huh.NewInput().
				Title("Classification batch size").
				Value(&m.fb.batchSize).
				Validate(validateRange("Batch size", 1, 50)),
		),
	).WithWidth(m.formWidth())
}

// apply returns a copy of the current config with the form values.
// Inputs were validated by the form.
func (m Model) apply() *model.AppConfig {
	cfg := *m.current
	atoi := func(s string) int {
		n, _ := strconv.Atoi(strings.TrimSpace(s))
		return n
	}

	cfg.Provider.Kind = m.fb.kind
	cfg.Provider.PageSize = atoi(m.fb.pageSize)
	cfg.Provider.PollIntervalSec = atoi(m.fb.pollInterval)
	if m.fb.kind == "imap" {
		cfg.Provider.IMAP.Host = strings.TrimSpace(m.fb.imapHost)
		cfg.Provider.IMAP.Port = atoi(m.fb.imapPort)
		cfg.Provider.IMAP.Username = strings.TrimSpace(m.fb.imapUsername)
		cfg.Provider.IMAP.Mailbox = strings.TrimSpace(m.fb.imapMailbox)
		cfg.Provider.IMAP.TLS = m.fb.imapTLS
	} else {
		cfg.Provider.Gmail.ClientSecretPath = strings.TrimSpace(m.fb.clientSecret)
	}
	cfg.AI.Model = strings.TrimSpace(m.fb.aiModel)
	cfg.AI.BaseURL = strings.TrimSpace(m.fb.aiBaseURL)
	cfg.Classify.DebounceMS = atoi(m.fb.debounceMS)
	cfg.Classify.BatchSize = atoi(m.fb.batchSize)
	return &cfg
}

// needsRestart reports whether anything besides the page size changed.
func needsRestart(prev, next *model.AppConfig) bool {
	a, b := *prev, *next
	a.Provider.PageSize, b.Provider.PageSize = 0, 0
	return a != b
}

func (m Model) save() tea.Cmd {
	prev := m.current
	next := m.apply()
	password := m.fb.imapPassword
	path := m.path
	creds := m.creds
	return func() tea.Msg {
		if password != "" {
			if err := creds.Set(credential.KeyIMAPPassword, password); err != nil {
				return SavedMsg{Err: fmt.Errorf("storing IMAP password: %w", err)}
			}
		}
		if err := model.SaveConfig(path, next); err != nil {
			return SavedMsg{Err: err}
		}
		return SavedMsg{
			Config:  next,
			Restart: needsRestart(prev, next) || password != "",
		}
	}
}

// View renders the settings form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Settings") + "\n" +
		theme.DimmedStyle.Render(m.path) + "\n\n" +
		m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateRange(fieldName string, lo, hi int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s must be a number", fieldName)
		}
		if n < lo || n > hi {
			return fmt.Errorf("%s must be between %d and %d", fieldName, lo, hi)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validatePort(s string) error {
	return validateRange("Port", 1, 65535)(s)
}
