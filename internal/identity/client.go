// Package identity предоставляет клиент для внешних реестров удостоверения личности.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrUnavailable возвращается, если реестр недоступен или не настроен.
	ErrUnavailable = errors.New("identity registry unavailable")
	// ErrNotFound возвращается, если документ отсутствует в реестре.
	ErrNotFound = errors.New("document not found in identity registry")
)

// Client инкапсулирует HTTP-взаимодействие с реестрами физических и юридических лиц.
type Client struct {
	baseURL    string
	token      string
	httpClient *retryablehttp.Client
}

// Person описывает подтверждённые данные физического лица.
type Person struct {
	Document      string `json:"document"`
	GivenNames    string `json:"givenNames"`
	FirstSurname  string `json:"firstSurname"`
	SecondSurname string `json:"secondSurname"`
	BirthDate     string `json:"birthDate"`
	Address       string `json:"address"`
}

// Entity описывает подтверждённые данные юридического лица.
type Entity struct {
	Document     string `json:"document"`
	LegalName    string `json:"legalName"`
	TradeName    string `json:"tradeName"`
	TaxpayerType string `json:"taxpayerType"`
	Status       string `json:"status"`
	Condition    string `json:"condition"`
	Address      string `json:"address"`
}

// NewClient создаёт HTTP-клиент для обращения к реестрам по указанному адресу.
// Ответы 5xx и сетевые ошибки повторяются дважды с экспоненциальной паузой.
func NewClient(baseURL, token string) *Client {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = 10 * time.Second

	rc := retryablehttp.NewClient()
	rc.HTTPClient = hc
	rc.Logger = nil
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: rc,
	}
}

// LookupPerson запрашивает данные физического лица по номеру национального документа.
func (c *Client) LookupPerson(ctx context.Context, nationalID string) (*Person, error) {
	var p Person
	if err := c.get(ctx, "persons", nationalID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LookupEntity запрашивает данные юридического лица по налоговому номеру.
func (c *Client) LookupEntity(ctx context.Context, taxID string) (*Entity, error) {
	var e Entity
	if err := c.get(ctx, "entities", taxID, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) get(ctx context.Context, registry, number string, dst any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("%w: client not configured", ErrUnavailable)
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	endpoint := fmt.Sprintf("%s/api/%s/%s", base, registry, url.PathEscape(number))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: do request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	return nil
}
