package integrate

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/christopherklint97/togglbird/internal/billing"
	"github.com/christopherklint97/togglbird/internal/moneybird"
	"github.com/christopherklint97/togglbird/internal/prompt"
	"github.com/christopherklint97/togglbird/internal/toggl"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

type fakeTracker struct {
	workspaces []toggl.Workspace
	projects   map[int64][]toggl.Project
	entries    []toggl.TimeEntry

	windowStart, windowEnd time.Time
	updated                map[int64][]string
	updateErr              error
}

func (f *fakeTracker) GetWorkspaces(context.Context) ([]toggl.Workspace, error) {
	return f.workspaces, nil
}

func (f *fakeTracker) GetProjects(_ context.Context, workspaceID int64) ([]toggl.Project, error) {
	return f.projects[workspaceID], nil
}

func (f *fakeTracker) GetTimeEntries(_ context.Context, start, end time.Time) ([]toggl.TimeEntry, error) {
	f.windowStart, f.windowEnd = start, end
	return f.entries, nil
}

func (f *fakeTracker) UpdateTags(_ context.Context, _, entryID int64, tags []string) (*toggl.TimeEntry, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updated == nil {
		f.updated = make(map[int64][]string)
	}
	f.updated[entryID] = tags
	return &toggl.TimeEntry{ID: entryID, Tags: tags}, nil
}

type fakeInvoicing struct {
	contacts []moneybird.Contact
	invoices map[string]*moneybird.SalesInvoice

	created   []moneybird.NewSalesInvoice
	deleted   []string
	createErr error
}

func (f *fakeInvoicing) GetContacts(context.Context) ([]moneybird.Contact, error) {
	return f.contacts, nil
}

func (f *fakeInvoicing) GetDraftInvoices(_ context.Context, contactID string) ([]moneybird.SalesInvoice, error) {
	var out []moneybird.SalesInvoice
	for _, inv := range f.invoices {
		if inv.ContactID == contactID && inv.State == moneybird.StateDraft {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvoicing) GetSalesInvoice(_ context.Context, id string) (*moneybird.SalesInvoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, &moneybird.APIError{StatusCode: 404, Body: "not found"}
	}
	return inv, nil
}

func (f *fakeInvoicing) CreateSalesInvoice(_ context.Context, invoice moneybird.NewSalesInvoice) (*moneybird.SalesInvoice, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, invoice)
	id := "new-" + string(rune('0'+len(f.created)))
	inv := &moneybird.SalesInvoice{
		ID:        id,
		ContactID: invoice.ContactID,
		State:     moneybird.StateDraft,
		Period:    invoice.Period,
		Details:   invoice.Details,
	}
	if f.invoices == nil {
		f.invoices = make(map[string]*moneybird.SalesInvoice)
	}
	f.invoices[id] = inv
	return inv, nil
}

func (f *fakeInvoicing) DeleteSalesInvoice(_ context.Context, id string) error {
	delete(f.invoices, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeInvoicing) InvoiceURL(invoice moneybird.SalesInvoice) string {
	return "https://moneybird.com/1/sales_invoices/" + invoice.ID
}

// scriptedPrompter answers questions by a keyword found in the title.
// MultiSelect picks every option unless multi is set.
type scriptedPrompter struct {
	selects map[string]string
	inputs  map[string]string
	multi   func([]prompt.Option) []string

	asked   []string
	options map[string][]prompt.Option
}

func (p *scriptedPrompter) answer(title string, answers map[string]string) (string, error) {
	p.asked = append(p.asked, title)
	for key, v := range answers {
		if strings.Contains(title, key) {
			return v, nil
		}
	}
	return "", prompt.ErrCanceled
}

func (p *scriptedPrompter) Select(title string, options []prompt.Option, _ int) (string, error) {
	if p.options == nil {
		p.options = make(map[string][]prompt.Option)
	}
	p.options[title] = options
	return p.answer(title, p.selects)
}

func (p *scriptedPrompter) MultiSelect(title string, options []prompt.Option) ([]string, error) {
	p.asked = append(p.asked, title)
	if p.options == nil {
		p.options = make(map[string][]prompt.Option)
	}
	p.options[title] = options
	if p.multi != nil {
		return p.multi(options), nil
	}
	values := make([]string, len(options))
	for n, o := range options {
		values[n] = o.Value
	}
	return values, nil
}

func (p *scriptedPrompter) Input(title, defaultValue string, validate func(string) error) (string, error) {
	v, err := p.answer(title, p.inputs)
	if err != nil {
		return "", err
	}
	if v == "" {
		v = defaultValue
	}
	if err := validate(v); err != nil {
		return "", err
	}
	return v, nil
}

type fixture struct {
	tracker   *fakeTracker
	invoicing *fakeInvoicing
	prompter  *scriptedPrompter
	out       *bytes.Buffer
	it        *Integrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		tracker: &fakeTracker{
			workspaces: []toggl.Workspace{{ID: 1, Name: "Acme"}},
			projects: map[int64][]toggl.Project{
				1: {{ID: 10, WorkspaceID: 1, Name: "Website"}, {ID: 20, WorkspaceID: 1, Name: "Internal"}},
			},
			entries: []toggl.TimeEntry{
				{ID: 100, WorkspaceID: 1, ProjectID: int64p(10), Description: "Homepage", Duration: 4060},
				{ID: 101, WorkspaceID: 1, ProjectID: int64p(10), Description: "Contact form", Duration: 1800, Tags: []string{"billed"}},
				{ID: 102, WorkspaceID: 1, ProjectID: int64p(10), Description: "Fix header", Duration: 900, Tags: []string{"frontend"}},
				{ID: 103, WorkspaceID: 1, ProjectID: int64p(20), Description: "Planning", Duration: 3600},
				{ID: 104, WorkspaceID: 1, ProjectID: nil, Description: "No project", Duration: 3600},
				{ID: 105, WorkspaceID: 1, ProjectID: int64p(10), Description: "Running", Duration: -1717000000},
			},
		},
		invoicing: &fakeInvoicing{
			contacts: []moneybird.Contact{
				{ID: "c1", CompanyName: "Globex", Country: "DE"},
				{ID: "c2", Firstname: "Jan", Lastname: "Jansen", Country: "NL"},
			},
		},
		prompter: &scriptedPrompter{
			selects: map[string]string{
				"project": "10",
				"contact": "c1",
				"draft":   noDraft,
			},
			inputs: map[string]string{
				"From":  "01-05-2024",
				"Until": "31-05-2024",
			},
		},
		out: &bytes.Buffer{},
	}

	f.it = New(f.tracker, f.invoicing, f.prompter, Settings{
		HourlyRate: decimal.RequireFromString("85"),
		RoundTo:    15,
		TaxRates:   billing.TaxRates{InsideEU: "123", OutsideEU: "456"},
	}, f.out, nil)
	f.it.loc = time.UTC
	f.it.now = func() time.Time { return time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestRun_CreatesInvoice(t *testing.T) {
	f := newFixture(t)

	result, err := f.it.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), f.tracker.windowStart)
	assert.Equal(t, time.Date(2024, 5, 31, 23, 59, 0, 0, time.UTC), f.tracker.windowEnd)

	require.Len(t, f.invoicing.created, 1)
	inv := f.invoicing.created[0]
	assert.Equal(t, "c1", inv.ContactID)
	assert.Equal(t, "20240501..20240531", inv.Period)
	require.Len(t, inv.Details, 3)

	assert.Equal(t, "Homepage", inv.Details[0].Description)
	assert.Equal(t, "01:00", inv.Details[0].Amount)
	assert.True(t, decimal.RequireFromString("85").Equal(inv.Details[0].Price))
	assert.Equal(t, "123", inv.Details[0].TaxRateID)
	assert.Equal(t, "20240501..20240531", inv.Details[0].Period)
	assert.Equal(t, "00:30", inv.Details[1].Amount)
	assert.Equal(t, "00:15", inv.Details[2].Amount)

	assert.Equal(t, "new-1", result.InvoiceID)
	assert.Equal(t, "https://moneybird.com/1/sales_invoices/new-1", result.URL)
	assert.Equal(t, 3, result.Lines)
	assert.Empty(t, result.ReplacedDraft)
	assert.Equal(t, 3, result.Tagged)
	assert.Contains(t, f.out.String(), "https://moneybird.com/1/sales_invoices/new-1")
}

func TestRun_OnlyOfferFinishedEntriesOfTheProject(t *testing.T) {
	f := newFixture(t)

	_, err := f.it.Run(context.Background())
	require.NoError(t, err)

	var labels []string
	for _, o := range f.prompter.options["Which time entries do you want to invoice?"] {
		labels = append(labels, o.Label)
	}
	assert.Equal(t, []string{
		"Homepage - duration: 01:07:40",
		"Contact form - duration: 00:30:00 [billed]",
		"Fix header - duration: 00:15:00 [frontend]",
	}, labels)
}

func TestRun_WarnsAboutSuspiciousEntries(t *testing.T) {
	f := newFixture(t)

	_, err := f.it.Run(context.Background())
	require.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, `already tagged "billed": Contact form`)
	assert.Contains(t, out, "bug fix: Fix header")
	assert.NotContains(t, out, "Homepage\n")
}

func TestRun_TagsEntriesAsBilledOnce(t *testing.T) {
	f := newFixture(t)

	_, err := f.it.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[int64][]string{
		100: {"billed"},
		101: {"billed"},
		102: {"frontend", "billed"},
	}, f.tracker.updated)
}

func TestRun_OnlyChosenEntries(t *testing.T) {
	f := newFixture(t)
	f.prompter.multi = func([]prompt.Option) []string { return []string{"102"} }

	result, err := f.it.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.invoicing.created[0].Details, 1)
	assert.Equal(t, "Fix header", f.invoicing.created[0].Details[0].Description)
	assert.Equal(t, 1, result.Tagged)
	assert.Len(t, f.tracker.updated, 1)
}

func TestRun_MergesIntoDraft(t *testing.T) {
	f := newFixture(t)
	f.invoicing.invoices = map[string]*moneybird.SalesInvoice{
		"d1": {
			ID:                "d1",
			ContactID:         "c1",
			State:             moneybird.StateDraft,
			Period:            "20240401..20240430",
			TotalPriceInclTax: decimal.RequireFromString("170"),
			Details: []moneybird.Detail{
				{ID: "l1", Description: "April work", Amount: "01:00", Price: decimal.RequireFromString("85"), Period: "20240401..20240430"},
				{ID: "l2", Description: "Hosting", Amount: "1", Price: decimal.RequireFromString("85")},
			},
		},
	}
	f.prompter.selects["draft"] = "d1"

	result, err := f.it.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.invoicing.created, 1)
	inv := f.invoicing.created[0]
	require.Len(t, inv.Details, 5)

	assert.Equal(t, "Homepage", inv.Details[0].Description)
	assert.Equal(t, "20240501..20240531", inv.Details[0].Period)
	assert.Equal(t, "April work", inv.Details[3].Description)
	assert.Empty(t, inv.Details[3].ID)
	assert.Equal(t, "20240401..20240531", inv.Details[3].Period)
	assert.Equal(t, "Hosting", inv.Details[4].Description)
	assert.Empty(t, inv.Details[4].Period)
	assert.Equal(t, "20240401..20240531", inv.Period)

	assert.Equal(t, []string{"d1"}, f.invoicing.deleted)
	assert.NotContains(t, f.invoicing.invoices, "d1")
	assert.Equal(t, "d1", result.ReplacedDraft)
	assert.Equal(t, 5, result.Lines)
}

func TestRun_DraftOptions(t *testing.T) {
	f := newFixture(t)
	f.invoicing.invoices = map[string]*moneybird.SalesInvoice{
		"d1": {ID: "d1", ContactID: "c1", State: moneybird.StateDraft, TotalPriceInclTax: decimal.RequireFromString("102.85")},
		"d2": {ID: "d2", ContactID: "c2", State: moneybird.StateDraft},
	}

	_, err := f.it.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []prompt.Option{
		{Value: noDraft, Label: "No"},
		{Value: "d1", Label: "Concept invoice with total of 102.85 (https://moneybird.com/1/sales_invoices/d1)"},
	}, f.prompter.options["Do you want to add the entries to an existing draft invoice?"])
	assert.Empty(t, f.invoicing.deleted)
}

func TestRun_SkipsDraftQuestionWithoutDrafts(t *testing.T) {
	f := newFixture(t)

	_, err := f.it.Run(context.Background())
	require.NoError(t, err)

	for _, title := range f.prompter.asked {
		assert.NotContains(t, title, "draft")
	}
}

func TestRun_SaveFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	f.invoicing.invoices = map[string]*moneybird.SalesInvoice{
		"d1": {ID: "d1", ContactID: "c1", State: moneybird.StateDraft},
	}
	f.invoicing.createErr = &moneybird.APIError{StatusCode: 422, Body: "invalid"}
	f.prompter.selects["draft"] = "d1"

	_, err := f.it.Run(context.Background())
	require.Error(t, err)

	var apiErr *moneybird.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Contains(t, err.Error(), "draft d1 was kept")
	assert.Empty(t, f.invoicing.deleted)
	assert.Contains(t, f.invoicing.invoices, "d1")
	assert.Empty(t, f.tracker.updated)
}

func TestRun_Workspaces(t *testing.T) {
	t.Run("should fail without workspaces", func(t *testing.T) {
		f := newFixture(t)
		f.tracker.workspaces = nil

		_, err := f.it.Run(context.Background())
		assert.ErrorIs(t, err, ErrNoWorkspaces)
	})

	t.Run("should not ask with a single workspace", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.it.Run(context.Background())
		require.NoError(t, err)
		assert.NotContains(t, f.prompter.asked, "Which workspace do you want to use?")
	})

	t.Run("should ask with several workspaces", func(t *testing.T) {
		f := newFixture(t)
		f.tracker.workspaces = append(f.tracker.workspaces, toggl.Workspace{ID: 2, Name: "Side"})
		f.tracker.projects[2] = []toggl.Project{{ID: 30, WorkspaceID: 2, Name: "Other"}}
		f.prompter.selects["workspace"] = "2"
		f.prompter.selects["project"] = "30"

		_, err := f.it.Run(context.Background())
		assert.ErrorIs(t, err, ErrNoEntries)
		assert.Contains(t, f.prompter.asked, "Which workspace do you want to use?")
	})
}

func TestRun_DisambiguatesContactNames(t *testing.T) {
	f := newFixture(t)
	f.invoicing.contacts = append(f.invoicing.contacts, moneybird.Contact{ID: "c3", CompanyName: "Globex", Country: "US"})
	f.prompter.selects["contact"] = "c3"

	_, err := f.it.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []prompt.Option{
		{Value: "c1", Label: "Globex #c1"},
		{Value: "c2", Label: "Jan Jansen"},
		{Value: "c3", Label: "Globex #c3"},
	}, f.prompter.options["Which contact do you want to invoice?"])
	assert.Equal(t, "456", f.invoicing.created[0].Details[0].TaxRateID)
}

func TestRun_DomesticContactHasNoTaxRate(t *testing.T) {
	f := newFixture(t)
	f.prompter.selects["contact"] = "c2"

	_, err := f.it.Run(context.Background())
	require.NoError(t, err)

	for _, d := range f.invoicing.created[0].Details {
		assert.Empty(t, d.TaxRateID)
	}
}

func TestRun_DefaultDates(t *testing.T) {
	f := newFixture(t)
	f.prompter.inputs = map[string]string{"From": "", "Until": ""}

	_, err := f.it.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), f.tracker.windowStart)
	assert.Equal(t, time.Date(2024, 6, 3, 23, 59, 0, 0, time.UTC), f.tracker.windowEnd)
}

func TestRun_NoRounding(t *testing.T) {
	f := newFixture(t)
	f.it.settings.RoundTo = 0

	_, err := f.it.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "01:07", f.invoicing.created[0].Details[0].Amount)
}

func TestRun_CanceledPrompt(t *testing.T) {
	f := newFixture(t)
	delete(f.prompter.selects, "contact")

	_, err := f.it.Run(context.Background())
	assert.ErrorIs(t, err, prompt.ErrCanceled)
	assert.Empty(t, f.invoicing.created)
}

func TestRun_TaggingFailure(t *testing.T) {
	f := newFixture(t)
	f.tracker.updateErr = errors.New("boom")

	result, err := f.it.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "new-1", result.InvoiceID)
	assert.Zero(t, result.Tagged)
}

func TestRun_EmptySelection(t *testing.T) {
	f := newFixture(t)
	f.prompter.multi = func([]prompt.Option) []string { return nil }

	result, err := f.it.Run(context.Background())
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Nil(t, result)
	assert.Empty(t, f.invoicing.created)
	assert.Empty(t, f.tracker.updated)
	assert.NotContains(t, f.prompter.asked, "Which contact do you want to invoice?")
}

func TestRun_RejectsReversedDateRange(t *testing.T) {
	f := newFixture(t)
	f.prompter.inputs = map[string]string{"From": "31-05-2024", "Until": "01-05-2024"}

	_, err := f.it.Run(context.Background())
	assert.ErrorIs(t, err, billing.ErrRangeReversed)
	assert.True(t, f.tracker.windowStart.IsZero())
	assert.Empty(t, f.invoicing.created)
}
