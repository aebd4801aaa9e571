// Package integrate runs the billing workflow: pick tracked time, pick a
// contact, write the invoice and mark the time as billed.
package integrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/christopherklint97/togglbird/internal/billing"
	"github.com/christopherklint97/togglbird/internal/moneybird"
	"github.com/christopherklint97/togglbird/internal/prompt"
	"github.com/christopherklint97/togglbird/internal/toggl"
	"github.com/shopspring/decimal"
)

var (
	ErrNoWorkspaces = errors.New("no workspace(s) found")
	ErrNoEntries    = errors.New("no time entries found for this project in the chosen period")

	// ErrNothingSelected keeps an invoice without lines from being saved.
	ErrNothingSelected = errors.New("no time entries selected")
)

type TimeTracker interface {
	GetWorkspaces(ctx context.Context) ([]toggl.Workspace, error)
	GetProjects(ctx context.Context, workspaceID int64) ([]toggl.Project, error)
	GetTimeEntries(ctx context.Context, start, end time.Time) ([]toggl.TimeEntry, error)
	UpdateTags(ctx context.Context, workspaceID, entryID int64, tags []string) (*toggl.TimeEntry, error)
}

type Invoicing interface {
	GetContacts(ctx context.Context) ([]moneybird.Contact, error)
	GetDraftInvoices(ctx context.Context, contactID string) ([]moneybird.SalesInvoice, error)
	GetSalesInvoice(ctx context.Context, id string) (*moneybird.SalesInvoice, error)
	CreateSalesInvoice(ctx context.Context, invoice moneybird.NewSalesInvoice) (*moneybird.SalesInvoice, error)
	DeleteSalesInvoice(ctx context.Context, id string) error
	InvoiceURL(invoice moneybird.SalesInvoice) string
}

type Prompter interface {
	Select(title string, options []prompt.Option, defaultIdx int) (string, error)
	MultiSelect(title string, options []prompt.Option) ([]string, error)
	Input(title, defaultValue string, validate func(string) error) (string, error)
}

// Settings are the billing parameters taken from the config file.
type Settings struct {
	HourlyRate decimal.Decimal
	RoundTo    int
	TaxRates   billing.TaxRates
}

// Result describes the invoice a run produced.
type Result struct {
	InvoiceID     string
	URL           string
	Lines         int
	ReplacedDraft string
	Tagged        int
}

type Integrator struct {
	tracker   TimeTracker
	invoicing Invoicing
	prompter  Prompter
	settings  Settings
	out       io.Writer
	logger    *slog.Logger
	now       func() time.Time
	loc       *time.Location
}

func New(tracker TimeTracker, invoicing Invoicing, prompter Prompter, settings Settings, out io.Writer, logger *slog.Logger) *Integrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Integrator{
		tracker:   tracker,
		invoicing: invoicing,
		prompter:  prompter,
		settings:  settings,
		out:       out,
		logger:    logger,
		now:       time.Now,
		loc:       time.Local,
	}
}

// Run walks through the whole workflow once.
func (i *Integrator) Run(ctx context.Context) (*Result, error) {
	workspace, err := i.chooseWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	project, err := i.chooseProject(ctx, workspace)
	if err != nil {
		return nil, err
	}

	dates, err := i.chooseDateRange()
	if err != nil {
		return nil, err
	}

	entries, err := i.chooseTimeEntries(ctx, project, dates)
	if err != nil {
		return nil, err
	}

	contact, err := i.chooseContact(ctx)
	if err != nil {
		return nil, err
	}

	draft, err := i.chooseDraft(ctx, contact)
	if err != nil {
		return nil, err
	}

	lines := i.buildLines(entries, contact, dates)

	var result *Result
	if draft != nil {
		result, err = i.mergeIntoDraft(ctx, contact, draft, lines, dates)
	} else {
		result, err = i.createInvoice(ctx, contact, lines, dates)
	}
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(i.out, prompt.Success("Invoice successfully saved: "+result.URL))

	result.Tagged, err = i.tagBilled(ctx, entries)
	if err != nil {
		return result, err
	}

	return result, nil
}

func (i *Integrator) comment(format string, args ...any) {
	fmt.Fprintln(i.out, prompt.Comment(fmt.Sprintf(format, args...)))
}
