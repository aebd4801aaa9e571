package integrate

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/christopherklint97/togglbird/internal/billing"
	"github.com/christopherklint97/togglbird/internal/moneybird"
	"github.com/christopherklint97/togglbird/internal/prompt"
	"github.com/christopherklint97/togglbird/internal/toggl"
)

const noDraft = "no"

func (i *Integrator) chooseWorkspace(ctx context.Context) (toggl.Workspace, error) {
	workspaces, err := i.tracker.GetWorkspaces(ctx)
	if err != nil {
		return toggl.Workspace{}, fmt.Errorf("fetching workspaces: %w", err)
	}

	switch len(workspaces) {
	case 0:
		return toggl.Workspace{}, ErrNoWorkspaces
	case 1:
		i.comment("Using workspace %s", workspaces[0].Name)
		return workspaces[0], nil
	}

	options := make([]prompt.Option, len(workspaces))
	for n, ws := range workspaces {
		options[n] = prompt.Option{Value: strconv.FormatInt(ws.ID, 10), Label: ws.Name}
	}
	id, err := i.prompter.Select("Which workspace do you want to use?", options, 0)
	if err != nil {
		return toggl.Workspace{}, err
	}
	for _, ws := range workspaces {
		if strconv.FormatInt(ws.ID, 10) == id {
			return ws, nil
		}
	}
	return toggl.Workspace{}, fmt.Errorf("unknown workspace %s", id)
}

func (i *Integrator) chooseProject(ctx context.Context, ws toggl.Workspace) (toggl.Project, error) {
	projects, err := i.tracker.GetProjects(ctx, ws.ID)
	if err != nil {
		return toggl.Project{}, fmt.Errorf("fetching projects: %w", err)
	}
	if len(projects) == 0 {
		return toggl.Project{}, fmt.Errorf("workspace %s has no projects", ws.Name)
	}

	options := make([]prompt.Option, len(projects))
	for n, p := range projects {
		options[n] = prompt.Option{Value: strconv.FormatInt(p.ID, 10), Label: p.Name}
	}
	id, err := i.prompter.Select("Which project do you want to invoice?", options, 0)
	if err != nil {
		return toggl.Project{}, err
	}
	for _, p := range projects {
		if strconv.FormatInt(p.ID, 10) == id {
			return p, nil
		}
	}
	return toggl.Project{}, fmt.Errorf("unknown project %s", id)
}

func (i *Integrator) chooseDateRange() (billing.DateRange, error) {
	defaultFrom, defaultTo := billing.DefaultRange(i.now().In(i.loc))
	validate := func(s string) error {
		_, err := billing.ParseDate(s, i.loc)
		return err
	}

	from, err := i.prompter.Input("From which date do you want to invoice? (dd-mm-yyyy)", defaultFrom, validate)
	if err != nil {
		return billing.DateRange{}, err
	}
	validateTo := func(s string) error {
		_, err := billing.NewDateRange(from, s, i.loc)
		return err
	}
	to, err := i.prompter.Input("Until which date do you want to invoice? (dd-mm-yyyy)", defaultTo, validateTo)
	if err != nil {
		return billing.DateRange{}, err
	}
	return billing.NewDateRange(from, to, i.loc)
}

// billableEntries keeps the finished entries of one project, in the
// order the tracker returned them.
func billableEntries(entries []toggl.TimeEntry, projectID int64) []toggl.TimeEntry {
	var out []toggl.TimeEntry
	for _, e := range entries {
		if e.Running() || !e.InProject(projectID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (i *Integrator) chooseTimeEntries(ctx context.Context, project toggl.Project, dates billing.DateRange) ([]toggl.TimeEntry, error) {
	start, end := dates.Window()
	i.logger.Debug("fetching time entries", "project", project.ID, "start", start, "end", end)

	all, err := i.tracker.GetTimeEntries(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching time entries: %w", err)
	}

	entries := billableEntries(all, project.ID)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s, %s", ErrNoEntries, project.Name, dates)
	}

	options := make([]prompt.Option, len(entries))
	for n, e := range entries {
		options[n] = prompt.Option{
			Value: strconv.FormatInt(e.ID, 10),
			Label: billing.EntryLabel(e.Description, e.Elapsed(), e.Tags),
		}
	}
	ids, err := i.prompter.MultiSelect("Which time entries do you want to invoice?", options)
	if err != nil {
		return nil, err
	}

	var chosen []toggl.TimeEntry
	for _, e := range entries {
		if !slices.Contains(ids, strconv.FormatInt(e.ID, 10)) {
			continue
		}
		if w := billing.Warning(e.Description, e.Tags); w != "" {
			fmt.Fprintln(i.out, prompt.Warning(w))
		}
		chosen = append(chosen, e)
	}
	if len(chosen) == 0 {
		return nil, ErrNothingSelected
	}
	return chosen, nil
}

func (i *Integrator) chooseContact(ctx context.Context) (moneybird.Contact, error) {
	contacts, err := i.invoicing.GetContacts(ctx)
	if err != nil {
		return moneybird.Contact{}, fmt.Errorf("fetching contacts: %w", err)
	}
	if len(contacts) == 0 {
		return moneybird.Contact{}, fmt.Errorf("no contacts found")
	}

	names := make(map[string]int, len(contacts))
	for _, c := range contacts {
		names[billing.ContactName(c.CompanyName, c.Firstname, c.Lastname)]++
	}

	options := make([]prompt.Option, len(contacts))
	for n, c := range contacts {
		label := billing.ContactName(c.CompanyName, c.Firstname, c.Lastname)
		if names[label] > 1 {
			label += " #" + c.ID
		}
		options[n] = prompt.Option{Value: c.ID, Label: label}
	}
	id, err := i.prompter.Select("Which contact do you want to invoice?", options, 0)
	if err != nil {
		return moneybird.Contact{}, err
	}
	for _, c := range contacts {
		if c.ID == id {
			return c, nil
		}
	}
	return moneybird.Contact{}, fmt.Errorf("unknown contact %s", id)
}

// chooseDraft returns the draft to merge into, or nil for a new invoice.
func (i *Integrator) chooseDraft(ctx context.Context, contact moneybird.Contact) (*moneybird.SalesInvoice, error) {
	drafts, err := i.invoicing.GetDraftInvoices(ctx, contact.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching draft invoices: %w", err)
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	options := []prompt.Option{{Value: noDraft, Label: "No"}}
	for _, d := range drafts {
		options = append(options, prompt.Option{
			Value: d.ID,
			Label: fmt.Sprintf("Concept invoice with total of %s (%s)", d.TotalPriceInclTax.StringFixed(2), i.invoicing.InvoiceURL(d)),
		})
	}
	id, err := i.prompter.Select("Do you want to add the entries to an existing draft invoice?", options, 0)
	if err != nil {
		return nil, err
	}
	if id == noDraft {
		return nil, nil
	}

	draft, err := i.invoicing.GetSalesInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching draft invoice %s: %w", id, err)
	}
	return draft, nil
}

// buildLines turns the chosen entries into invoice lines for the fresh
// date range.
func (i *Integrator) buildLines(entries []toggl.TimeEntry, contact moneybird.Contact, dates billing.DateRange) []moneybird.Detail {
	taxRate := billing.TaxRateID(contact.Country, i.settings.TaxRates)
	period := dates.Period().String()

	lines := make([]moneybird.Detail, len(entries))
	for n, e := range entries {
		lines[n] = moneybird.Detail{
			Description: e.Description,
			Amount:      billing.Quantity(e.Elapsed(), i.settings.RoundTo),
			Price:       i.settings.HourlyRate,
			TaxRateID:   taxRate,
			Period:      period,
		}
	}
	return lines
}

func (i *Integrator) createInvoice(ctx context.Context, contact moneybird.Contact, lines []moneybird.Detail, dates billing.DateRange) (*Result, error) {
	invoice, err := i.invoicing.CreateSalesInvoice(ctx, moneybird.NewSalesInvoice{
		ContactID: contact.ID,
		Period:    dates.Period().String(),
		Details:   lines,
	})
	if err != nil {
		return nil, fmt.Errorf("saving invoice: %w", err)
	}
	return &Result{
		InvoiceID: invoice.ID,
		URL:       i.invoicing.InvoiceURL(*invoice),
		Lines:     len(lines),
	}, nil
}

// mergeIntoDraft creates one invoice holding the new lines followed by
// the draft's lines, then deletes the draft. The draft is only deleted
// once the new invoice has been saved.
func (i *Integrator) mergeIntoDraft(ctx context.Context, contact moneybird.Contact, draft *moneybird.SalesInvoice, lines []moneybird.Detail, dates billing.DateRange) (*Result, error) {
	merged := slices.Clone(lines)
	for _, d := range draft.Details {
		line := moneybird.DetailFrom(d)
		line.Period = billing.ExtendPeriod(line.Period, dates.To)
		merged = append(merged, line)
	}

	invoice, err := i.invoicing.CreateSalesInvoice(ctx, moneybird.NewSalesInvoice{
		ContactID: contact.ID,
		Period:    billing.MergedPeriod(draft.Period, dates),
		Details:   merged,
	})
	if err != nil {
		return nil, fmt.Errorf("saving invoice, draft %s was kept: %w", draft.ID, err)
	}

	if err := i.invoicing.DeleteSalesInvoice(ctx, draft.ID); err != nil {
		return nil, fmt.Errorf("deleting draft invoice %s after saving %s: %w", draft.ID, invoice.ID, err)
	}
	i.logger.Debug("merged draft invoice", "draft", draft.ID, "invoice", invoice.ID, "lines", len(merged))

	return &Result{
		InvoiceID:     invoice.ID,
		URL:           i.invoicing.InvoiceURL(*invoice),
		Lines:         len(merged),
		ReplacedDraft: draft.ID,
	}, nil
}

// tagBilled adds the billed tag to every invoiced entry.
func (i *Integrator) tagBilled(ctx context.Context, entries []toggl.TimeEntry) (int, error) {
	tagged := 0
	for _, e := range entries {
		tags := billing.AddTag(e.Tags, billing.BilledTag)
		if _, err := i.tracker.UpdateTags(ctx, e.WorkspaceID, e.ID, tags); err != nil {
			return tagged, fmt.Errorf("tagging time entry %d: %w", e.ID, err)
		}
		tagged++
	}
	i.comment("Tagged %d time entries as %s", tagged, billing.BilledTag)
	return tagged, nil
}
