package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dukapay/dukapay-gobackend/internal/apperrors"
	"github.com/dukapay/dukapay-gobackend/internal/config"
)

// msisdnPattern is the canonical Safaricom subscriber format: country code
// 254 followed by a 9-digit number beginning with 7.
var msisdnPattern = regexp.MustCompile(`^2547\d{8}$`)

// MpesaGateway talks to the Daraja API: it fetches OAuth access tokens and
// submits STK push requests. Credentials are validated once at construction.
type MpesaGateway struct {
	cfg    config.MpesaConfig
	client *http.Client
	now    func() time.Time
}

// STKPushResponse is the provider's reply to a push request.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkPushRequest struct {
	BusinessShortCode string  `json:"BusinessShortCode"`
	Password          string  `json:"Password"`
	Timestamp         string  `json:"Timestamp"`
	TransactionType   string  `json:"TransactionType"`
	Amount            float64 `json:"Amount"`
	PartyA            string  `json:"PartyA"`
	PartyB            string  `json:"PartyB"`
	PhoneNumber       string  `json:"PhoneNumber"`
	CallBackURL       string  `json:"CallBackURL"`
	AccountReference  string  `json:"AccountReference"`
	TransactionDesc   string  `json:"TransactionDesc"`
}

// NewMpesaGateway fails fast when any Daraja credential is missing so the
// error surfaces at startup rather than on the first payment.
func NewMpesaGateway(cfg config.MpesaConfig) (*MpesaGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Credential(err.Error())
	}
	return &MpesaGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}, nil
}

// NormalizePhone strips "+", spaces and a leading "0" (replaced with the 254
// country code) so numbers like "0712 345 678" reach validation in canonical
// form. It does not validate; ValidatePhone does.
func NormalizePhone(phone string) string {
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.TrimPrefix(phone, "+")
	if strings.HasPrefix(phone, "0") {
		phone = "254" + phone[1:]
	}
	return phone
}

// ValidatePhone checks the canonical 12-digit 2547XXXXXXXX form.
func ValidatePhone(phone string) error {
	if !msisdnPattern.MatchString(phone) {
		return apperrors.Validation("invalid phone number, expected format 2547XXXXXXXX")
	}
	return nil
}

// FetchAccessToken obtains a short-lived bearer token from the Daraja OAuth
// endpoint using the consumer key/secret as HTTP Basic credentials.
func (g *MpesaGateway) FetchAccessToken(ctx context.Context) (string, error) {
	url := g.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", apperrors.Gateway("mpesa token request failed: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", apperrors.Gateway(fmt.Sprintf("mpesa token endpoint returned %d: %s", resp.StatusCode, string(body)))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.Gateway("mpesa token response decode failed: " + err.Error())
	}
	if result.AccessToken == "" {
		return "", apperrors.Gateway("mpesa token response missing access_token")
	}

	return result.AccessToken, nil
}

// RequestSTKPush submits a payment prompt to the payer's device. The phone
// number must already be normalized; a non-zero ResponseCode from the
// provider is treated as a decline.
func (g *MpesaGateway) RequestSTKPush(ctx context.Context, token, phone string, amount float64, productName, description string) (*STKPushResponse, error) {
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}

	timestamp := g.now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(g.cfg.Shortcode + g.cfg.Passkey + timestamp))

	if description == "" {
		description = fmt.Sprintf("Payment of %v for %s", amount, productName)
	}

	reqBody := stkPushRequest{
		BusinessShortCode: g.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            g.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       g.cfg.CallbackURL,
		AccountReference:  productName,
		TransactionDesc:   description,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewBuffer(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperrors.Gateway("mpesa stk push request failed: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperrors.Gateway(fmt.Sprintf("mpesa stk push returned %d: %s", resp.StatusCode, string(body)))
	}

	var result STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Gateway("mpesa stk push response decode failed: " + err.Error())
	}
	if result.ResponseCode != "0" {
		return nil, apperrors.Gateway("mpesa declined stk push: " + result.ResponseDescription)
	}

	return &result, nil
}
