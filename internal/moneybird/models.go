package moneybird

import "github.com/shopspring/decimal"

const (
	StateDraft = "draft"

	// SyncBatchSize is the maximum number of ids the synchronization
	// endpoint accepts per call.
	SyncBatchSize = 100
)

type Administration struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ContactVersion is a single row of the contacts synchronization listing.
type ContactVersion struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

type Contact struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Country     string `json:"country"`
}

type SalesInvoice struct {
	ID                string          `json:"id"`
	ContactID         string          `json:"contact_id"`
	State             string          `json:"state"`
	Period            string          `json:"period"`
	TotalPriceInclTax decimal.Decimal `json:"total_price_incl_tax"`
	URL               string          `json:"url"`
	Details           []Detail        `json:"details"`
}

// Detail is a single invoice line. Amount is a quantity such as "01:30".
type Detail struct {
	ID              string          `json:"id,omitempty"`
	Description     string          `json:"description"`
	Amount          string          `json:"amount"`
	Price           decimal.Decimal `json:"price"`
	TaxRateID       string          `json:"tax_rate_id,omitempty"`
	LedgerAccountID string          `json:"ledger_account_id,omitempty"`
	ProductID       string          `json:"product_id,omitempty"`
	Period          string          `json:"period,omitempty"`
}

// NewSalesInvoice is the payload for creating an invoice together with
// its lines.
type NewSalesInvoice struct {
	ContactID string   `json:"contact_id"`
	Period    string   `json:"period,omitempty"`
	Details   []Detail `json:"details_attributes"`
}

// DetailFrom copies the billable fields of an existing line so it can be
// attached to a new invoice.
func DetailFrom(d Detail) Detail {
	d.ID = ""
	return d
}
