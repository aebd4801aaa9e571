package moneybird

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(context.Background(), "secret", "123", srv.URL, nil)
}

func TestClient_Connect(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name: "should accept a listed administration",
			body: `[{"id": "999", "name": "Other"}, {"id": "123", "name": "Mine"}]`,
		},
		{
			name:    "should reject an unlisted administration",
			body:    `[{"id": "999", "name": "Other"}]`,
			wantErr: ErrUnknownAdministration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/administrations.json", r.URL.Path)
				w.Write([]byte(tt.body))
			})

			err := client.Connect(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClient_GetContacts_Batches(t *testing.T) {
	const total = 250
	var batchSizes []int

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/123/contacts/synchronization.json", r.URL.Path)

		switch r.Method {
		case http.MethodGet:
			versions := make([]ContactVersion, total)
			for i := range versions {
				versions[i] = ContactVersion{ID: fmt.Sprintf("c%d", i), Version: 1}
			}
			json.NewEncoder(w).Encode(versions)
		case http.MethodPost:
			var body struct {
				IDs []string `json:"ids"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			batchSizes = append(batchSizes, len(body.IDs))

			contacts := make([]Contact, len(body.IDs))
			for i, id := range body.IDs {
				contacts[i] = Contact{ID: id, CompanyName: "Company " + id, Country: "NL"}
			}
			json.NewEncoder(w).Encode(contacts)
		}
	})

	contacts, err := client.GetContacts(context.Background())
	require.NoError(t, err)
	assert.Len(t, contacts, total)
	assert.Equal(t, []int{100, 100, 50}, batchSizes)
	assert.Equal(t, "c0", contacts[0].ID)
	assert.Equal(t, "c249", contacts[total-1].ID)
}

func TestClient_GetDraftInvoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/123/sales_invoices.json", r.URL.Path)
		assert.Equal(t, "state:draft,contact_id:42", r.URL.Query().Get("filter"))
		w.Write([]byte(`[{"id": "500", "contact_id": "42", "state": "draft", "total_price_incl_tax": "121.0",
			"details": [{"id": "1", "description": "Old work", "amount": "02:00", "price": "50.0", "period": "20240401..20240430"}]}]`))
	})

	invoices, err := client.GetDraftInvoices(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.True(t, decimal.RequireFromString("121").Equal(invoices[0].TotalPriceInclTax))
	require.Len(t, invoices[0].Details, 1)
	assert.Equal(t, "20240401..20240430", invoices[0].Details[0].Period)
}

func TestClient_CreateSalesInvoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/123/sales_invoices.json", r.URL.Path)

		var body struct {
			SalesInvoice struct {
				ContactID string   `json:"contact_id"`
				Period    string   `json:"period"`
				Details   []Detail `json:"details_attributes"`
			} `json:"sales_invoice"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body.SalesInvoice.ContactID)
		assert.Equal(t, "20240501..20240531", body.SalesInvoice.Period)
		if assert.Len(t, body.SalesInvoice.Details, 1) {
			assert.Equal(t, "01:30", body.SalesInvoice.Details[0].Amount)
			assert.Equal(t, "vat-eu", body.SalesInvoice.Details[0].TaxRateID)
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "777", "contact_id": "42", "state": "draft", "url": "https://moneybird.com/123/sales_invoices/abc/def"}`))
	})

	created, err := client.CreateSalesInvoice(context.Background(), NewSalesInvoice{
		ContactID: "42",
		Period:    "20240501..20240531",
		Details: []Detail{{
			Description: "Homepage",
			Amount:      "01:30",
			Price:       decimal.NewFromInt(85),
			TaxRateID:   "vat-eu",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "777", created.ID)
	assert.Equal(t, "https://moneybird.com/123/sales_invoices/777", client.InvoiceURL(*created))
}

func TestClient_DeleteSalesInvoice(t *testing.T) {
	deleted := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/123/sales_invoices/500.json", r.URL.Path)
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteSalesInvoice(context.Background(), "500"))
	assert.True(t, deleted)
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": "contact_id is invalid"}`))
	})

	_, err := client.CreateSalesInvoice(context.Background(), NewSalesInvoice{ContactID: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.True(t, strings.Contains(err.Error(), "contact_id is invalid"))
}

func TestClient_InvoiceURLFallback(t *testing.T) {
	client := NewClient(context.Background(), "secret", "123", "", nil)
	assert.Equal(t, "https://moneybird.com/123/sales_invoices/9", client.InvoiceURL(SalesInvoice{ID: "9"}))
}

func TestDetailFrom(t *testing.T) {
	d := DetailFrom(Detail{ID: "1", Description: "Old", Amount: "1", Period: "20240101..20240131"})
	assert.Empty(t, d.ID)
	assert.Equal(t, "Old", d.Description)
	assert.Equal(t, "20240101..20240131", d.Period)
}
