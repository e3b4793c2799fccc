// Package payment wraps the Stripe REST API. It resolves opaque payment
// references to confirmed amounts and charges saved methods; no business
// logic lives here.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/core"
)

const defaultAPIBase = "https://api.stripe.com"

type Client struct {
	secretKey string
	apiBase   string
	http      *http.Client
}

func NewClient(secretKey, apiBase string) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Client{
		secretKey: secretKey,
		apiBase:   strings.TrimRight(apiBase, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether a secret key is present. Payment endpoints
// answer "gateway unavailable" when it is not.
func (c *Client) Configured() bool { return c.secretKey != "" }

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, idemKey string, out any) error {
	var body io.Reader
	if method == http.MethodPost && form != nil {
		body = strings.NewReader(form.Encode())
	}
	u := c.apiBase + path
	if method == http.MethodGet && form != nil {
		u += "?" + form.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("stripe read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error.Message != "" {
			return fmt.Errorf("stripe %s: %s", path, ae.Error.Message)
		}
		return fmt.Errorf("stripe %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("stripe decode: %w", err)
		}
	}
	return nil
}

type paymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

type checkoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
}

// VerifyReference resolves a reference to a confirmed amount. Accepts both
// reference shapes the clients hold: a PaymentIntent id (quick-pay) or a
// Checkout session id (full checkout). Read-only, so re-verifying the same
// reference never double-charges.
func (c *Client) VerifyReference(ctx context.Context, ref string) (core.PaymentVerification, error) {
	switch {
	case strings.HasPrefix(ref, "pi_"):
		var pi paymentIntent
		if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+ref, nil, "", &pi); err != nil {
			return core.PaymentVerification{}, &core.PaymentError{Reason: err.Error()}
		}
		if pi.Status != "succeeded" {
			return core.PaymentVerification{}, &core.PaymentError{Reason: "payment intent status " + pi.Status}
		}
		return core.PaymentVerification{Ref: ref, AmountCents: pi.Amount}, nil
	case strings.HasPrefix(ref, "cs_"):
		var cs checkoutSession
		if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+ref, nil, "", &cs); err != nil {
			return core.PaymentVerification{}, &core.PaymentError{Reason: err.Error()}
		}
		if cs.PaymentStatus != "paid" {
			return core.PaymentVerification{}, &core.PaymentError{Reason: "checkout payment status " + cs.PaymentStatus}
		}
		return core.PaymentVerification{Ref: ref, AmountCents: cs.AmountTotal}, nil
	case ref == "":
		return core.PaymentVerification{}, &core.PaymentError{Reason: "no payment reference provided"}
	default:
		return core.PaymentVerification{}, &core.PaymentError{Reason: "unrecognized payment reference"}
	}
}

type paymentMethodList struct {
	Data []struct {
		ID   string `json:"id"`
		Card struct {
			Brand string `json:"brand"`
			Last4 string `json:"last4"`
		} `json:"card"`
	} `json:"data"`
}

// ChargeSavedMethod charges the customer's first saved card off-session.
// The idempotency key makes gateway-side retries safe.
func (c *Client) ChargeSavedMethod(ctx context.Context, customerRef string, amountCents int64, description string) (core.PaymentVerification, error) {
	var methods paymentMethodList
	form := url.Values{"customer": {customerRef}, "type": {"card"}}
	if err := c.do(ctx, http.MethodGet, "/v1/payment_methods", form, "", &methods); err != nil {
		return core.PaymentVerification{}, &core.PaymentError{Reason: err.Error()}
	}
	if len(methods.Data) == 0 {
		return core.PaymentVerification{}, &core.PaymentError{Reason: "no saved payment method"}
	}
	pm := methods.Data[0]

	form = url.Values{
		"amount":         {strconv.FormatInt(amountCents, 10)},
		"currency":       {"usd"},
		"customer":       {customerRef},
		"payment_method": {pm.ID},
		"off_session":    {"true"},
		"confirm":        {"true"},
		"description":    {description},
	}
	var pi paymentIntent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", form, uuid.NewString(), &pi); err != nil {
		return core.PaymentVerification{}, &core.PaymentError{Reason: err.Error()}
	}
	if pi.Status != "succeeded" {
		return core.PaymentVerification{}, &core.PaymentError{Reason: "payment intent status " + pi.Status}
	}
	log.Info().Str("module", "adapters.payment").Str("customer", customerRef).Int64("amount_cents", amountCents).Msg("saved method charged")
	return core.PaymentVerification{
		Ref:         pi.ID,
		AmountCents: pi.Amount,
		Method:      pm.Card.Brand + " ****" + pm.Card.Last4,
	}, nil
}

// CheckoutParams describes a one-time checkout for a spotlight or tip.
type CheckoutParams struct {
	ProductName string
	AmountCents int64
	SuccessURL  string
	CancelURL   string
	CustomerRef string
	Metadata    map[string]string
}

// Checkout is the redirect target handed back to the browser.
type Checkout struct {
	ID  string `json:"session_id"`
	URL string `json:"checkout_url"`
}

// CreateCheckout opens a hosted checkout session; the card is saved for
// later quick-pay charges.
func (c *Client) CreateCheckout(ctx context.Context, p CheckoutParams) (Checkout, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.ProductName)
	form.Set("line_items[0][quantity]", "1")
	form.Set("payment_intent_data[setup_future_usage]", "off_session")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	if p.CustomerRef != "" {
		form.Set("customer", p.CustomerRef)
	}
	for k, val := range p.Metadata {
		form.Set("metadata["+k+"]", val)
	}
	var cs checkoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, "", &cs); err != nil {
		return Checkout{}, err
	}
	return Checkout{ID: cs.ID, URL: cs.URL}, nil
}

// EnsureCustomer creates a gateway customer so the card can be saved.
func (c *Client) EnsureCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	form := url.Values{"email": {email}, "name": {name}}
	for k, val := range metadata {
		form.Set("metadata["+k+"]", val)
	}
	var customer struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/customers", form, "", &customer); err != nil {
		return "", err
	}
	return customer.ID, nil
}
