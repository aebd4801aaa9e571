// Package moneybird is a small client for the parts of the Moneybird v2
// API needed to bill time: contacts and sales invoices.
package moneybird

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://moneybird.com/api/v2"
	webBaseURL     = "https://moneybird.com"
)

var ErrUnknownAdministration = errors.New("administration not accessible with this access token")

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("moneybird API error (status %d): %s", e.StatusCode, e.Body)
}

type Client struct {
	administrationID string
	baseURL          string
	httpClient       *http.Client
	logger           *slog.Logger
}

// NewClient returns a client for one administration. The access token is
// sent as an OAuth2 bearer token on every request.
func NewClient(ctx context.Context, accessToken, administrationID, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = 30 * time.Second

	return &Client{
		administrationID: administrationID,
		baseURL:          strings.TrimRight(baseURL, "/"),
		httpClient:       httpClient,
		logger:           logger,
	}
}

func (c *Client) AdministrationID() string {
	return c.administrationID
}

// doRequest calls path relative to the API root. Failures are not retried.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("moneybird API request", "method", method, "path", path)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("API request transport error", "method", method, "path", path, "error", err, "elapsed", time.Since(requestStart))
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("moneybird API response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("API request failed", "method", method, "path", path, "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

// adminPath prefixes path with the administration id.
func (c *Client) adminPath(path string) string {
	return "/" + url.PathEscape(c.administrationID) + path
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Connect verifies the token and that the configured administration is
// reachable with it.
func (c *Client) Connect(ctx context.Context) error {
	data, err := c.doRequest(ctx, http.MethodGet, "/administrations.json", nil)
	if err != nil {
		return fmt.Errorf("listing administrations: %w", err)
	}

	var admins []Administration
	if err := json.Unmarshal(data, &admins); err != nil {
		return fmt.Errorf("parsing administrations response: %w", err)
	}

	for _, a := range admins {
		if a.ID == c.administrationID {
			c.logger.Debug("connected to administration", "id", a.ID, "name", a.Name)
			return nil
		}
	}
	return fmt.Errorf("administration %s: %w", c.administrationID, ErrUnknownAdministration)
}

// GetContacts fetches every contact, asking for the full records in
// batches of SyncBatchSize ids.
func (c *Client) GetContacts(ctx context.Context) ([]Contact, error) {
	data, err := c.doRequest(ctx, http.MethodGet, c.adminPath("/contacts/synchronization.json"), nil)
	if err != nil {
		return nil, fmt.Errorf("listing contact versions: %w", err)
	}

	var versions []ContactVersion
	if err := json.Unmarshal(data, &versions); err != nil {
		return nil, fmt.Errorf("parsing contact versions response: %w", err)
	}

	contacts := make([]Contact, 0, len(versions))
	for start := 0; start < len(versions); start += SyncBatchSize {
		end := min(start+SyncBatchSize, len(versions))

		ids := make([]string, 0, end-start)
		for _, v := range versions[start:end] {
			ids = append(ids, v.ID)
		}

		data, err := c.doRequest(ctx, http.MethodPost, c.adminPath("/contacts/synchronization.json"), map[string][]string{"ids": ids})
		if err != nil {
			return nil, fmt.Errorf("fetching contacts %d-%d: %w", start, end, err)
		}

		var batch []Contact
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("parsing contacts response: %w", err)
		}
		contacts = append(contacts, batch...)
	}

	return contacts, nil
}

// GetSalesInvoices lists invoices matching the given state and contact.
// Empty arguments are left out of the filter.
func (c *Client) GetSalesInvoices(ctx context.Context, state, contactID string) ([]SalesInvoice, error) {
	var filters []string
	if state != "" {
		filters = append(filters, "state:"+state)
	}
	if contactID != "" {
		filters = append(filters, "contact_id:"+contactID)
	}

	path := c.adminPath("/sales_invoices.json")
	if len(filters) > 0 {
		q := url.Values{}
		q.Set("filter", strings.Join(filters, ","))
		path += "?" + q.Encode()
	}

	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("listing sales invoices: %w", err)
	}

	var invoices []SalesInvoice
	if err := json.Unmarshal(data, &invoices); err != nil {
		return nil, fmt.Errorf("parsing sales invoices response: %w", err)
	}

	return invoices, nil
}

func (c *Client) GetDraftInvoices(ctx context.Context, contactID string) ([]SalesInvoice, error) {
	return c.GetSalesInvoices(ctx, StateDraft, contactID)
}

func (c *Client) GetSalesInvoice(ctx context.Context, id string) (*SalesInvoice, error) {
	data, err := c.doRequest(ctx, http.MethodGet, c.adminPath("/sales_invoices/"+url.PathEscape(id)+".json"), nil)
	if err != nil {
		return nil, fmt.Errorf("getting sales invoice %s: %w", id, err)
	}

	var invoice SalesInvoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		return nil, fmt.Errorf("parsing sales invoice response: %w", err)
	}

	return &invoice, nil
}

// CreateSalesInvoice saves a new invoice with all of its lines in one call.
func (c *Client) CreateSalesInvoice(ctx context.Context, invoice NewSalesInvoice) (*SalesInvoice, error) {
	body := map[string]NewSalesInvoice{"sales_invoice": invoice}
	data, err := c.doRequest(ctx, http.MethodPost, c.adminPath("/sales_invoices.json"), body)
	if err != nil {
		return nil, fmt.Errorf("creating sales invoice: %w", err)
	}

	var created SalesInvoice
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("parsing sales invoice response: %w", err)
	}

	return &created, nil
}

func (c *Client) DeleteSalesInvoice(ctx context.Context, id string) error {
	if _, err := c.doRequest(ctx, http.MethodDelete, c.adminPath("/sales_invoices/"+url.PathEscape(id)+".json"), nil); err != nil {
		return fmt.Errorf("deleting sales invoice %s: %w", id, err)
	}
	return nil
}

// InvoiceURL returns the address of the invoice in the web application.
// The API url points at a sub page of the invoice, so its last two path
// segments are replaced by the invoice id.
func (c *Client) InvoiceURL(invoice SalesInvoice) string {
	if invoice.URL != "" {
		parts := strings.Split(strings.TrimRight(invoice.URL, "/"), "/")
		if len(parts) > 6 {
			return strings.Join(parts[:len(parts)-2], "/") + "/" + invoice.ID
		}
	}
	return fmt.Sprintf("%s/%s/sales_invoices/%s", webBaseURL, c.administrationID, invoice.ID)
}
