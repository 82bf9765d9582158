package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ListingMail is the listing summary rendered into moderation emails.
type ListingMail struct {
	HumanID string
	Title   string
	Slug    string
}

// Sender sends moderation emails. Implementations may be no-ops.
type Sender interface {
	SendListingPending(ctx context.Context, toEmail string, l ListingMail) error
	SendListingApproved(ctx context.Context, toEmail, name string, l ListingMail) error
	SendListingRefused(ctx context.Context, toEmail, name string, l ListingMail, reason string) error
}

// BrevoClient sends emails via Brevo (Sendinblue) API: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	SiteName string
	BaseURL  string
	// Endpoint overrides the Brevo API URL (tests).
	Endpoint string
	Client   *http.Client
}

var _ Sender = (*BrevoClient)(nil)

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@classifieds.local"
}

func (c *BrevoClient) site() string {
	if c.SiteName != "" {
		return c.SiteName
	}
	return "Classifieds"
}

func (c *BrevoClient) listingURL(l ListingMail) string {
	return strings.TrimRight(c.BaseURL, "/") + "/listings/" + l.Slug
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	if toEmail == "" {
		return fmt.Errorf("brevo send: empty recipient")
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: c.site()},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: c.from(), Name: c.site() + " Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = brevoAPI
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendListingPending tells moderators a new listing awaits review.
func (c *BrevoClient) SendListingPending(ctx context.Context, toEmail string, l ListingMail) error {
	if c.APIKey == "" {
		return nil
	}
	subject := fmt.Sprintf("New listing %s awaiting moderation", l.HumanID)
	return c.sendTemplate(ctx, toEmail, subject, "pending", contentData{Title: l.Title, HumanID: l.HumanID})
}

// SendListingApproved tells the owner the listing is live.
func (c *BrevoClient) SendListingApproved(ctx context.Context, toEmail, name string, l ListingMail) error {
	if c.APIKey == "" {
		return nil
	}
	return c.sendTemplate(ctx, toEmail, "Your listing is now live", "approved", contentData{
		Name:    greeting(name),
		Title:   l.Title,
		HumanID: l.HumanID,
		URL:     c.listingURL(l),
	})
}

// SendListingRefused tells the owner the listing was refused. The reason is quoted verbatim.
func (c *BrevoClient) SendListingRefused(ctx context.Context, toEmail, name string, l ListingMail, reason string) error {
	if c.APIKey == "" {
		return nil
	}
	return c.sendTemplate(ctx, toEmail, "Your listing was not approved", "refused", contentData{
		Name:    greeting(name),
		Title:   l.Title,
		HumanID: l.HumanID,
		Reason:  reason,
	})
}

func (c *BrevoClient) sendTemplate(ctx context.Context, toEmail, subject, content string, data contentData) error {
	html, err := EmailLayout(c.site(), c.BaseURL, content, data)
	if err != nil {
		return fmt.Errorf("render %s email: %w", content, err)
	}
	return c.send(ctx, toEmail, subject, html)
}

func greeting(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
