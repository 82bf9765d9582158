package emails

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrevoClient_NoAPIKeyIsNoop(t *testing.T) {
	c := &BrevoClient{Endpoint: "http://127.0.0.1:1"}
	assert.NoError(t, c.SendListingApproved(context.Background(), "a@x.io", "Ann", ListingMail{HumanID: "POST001"}))
}

func TestBrevoClient_SendListingRefused(t *testing.T) {
	var got BrevoSendRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := &BrevoClient{APIKey: "k", MailFrom: "noreply@ads.test", SiteName: "Ads", Endpoint: srv.URL}
	err := c.SendListingRefused(context.Background(), "owner@x.io", "Ann", ListingMail{HumanID: "POST007", Title: "Bike"}, "Photos <missing>")
	require.NoError(t, err)

	assert.Equal(t, "k", apiKey)
	assert.Equal(t, "noreply@ads.test", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "owner@x.io", got.To[0].Email)
	assert.Equal(t, "Your listing was not approved", got.Subject)
	assert.Contains(t, got.HTMLContent, "Photos &lt;missing&gt;")
	assert.Contains(t, got.HTMLContent, "POST007")
}

func TestBrevoClient_Non2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &BrevoClient{APIKey: "k", Endpoint: srv.URL}
	err := c.SendListingPending(context.Background(), "admin@x.io", ListingMail{HumanID: "POST001"})
	assert.Error(t, err)
}

func TestEmailLayout_EscapesFieldsAndLinksListing(t *testing.T) {
	html, err := EmailLayout("Ads", "https://ads.test", "approved", contentData{
		Name:    "Ann",
		Title:   `<b>Oak</b> "table"`,
		HumanID: "POST010",
		URL:     "https://ads.test/listings/oak-table",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;b&gt;Oak&lt;/b&gt;")
	assert.NotContains(t, html, "<b>Oak</b>")
	assert.Contains(t, html, `href="https://ads.test/listings/oak-table"`)
	assert.Contains(t, html, "POST010")

	_, err = EmailLayout("Ads", "", "missing", contentData{})
	assert.Error(t, err)
}
