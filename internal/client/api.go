package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atinyakov/TalentKeeper/internal/httpclient"
	"github.com/atinyakov/TalentKeeper/internal/models"
)

// Query selects a page of talents.
type Query struct {
	Filters      map[string]string
	Page         int
	PageSize     int
	Remote       bool
	CatalogPath  string
	ImagesFolder string
}

// Page is one page of the listing endpoint.
type Page struct {
	Talents       []models.Talent `json:"talents"`
	TotalPages    int             `json:"total_pages"`
	CurrentPage   int             `json:"current_page"`
	TotalCount    int             `json:"total_count"`
	Source        string          `json:"source"`
	Authenticated *bool           `json:"authenticated,omitempty"`
	ShowCTA       bool            `json:"show_cta,omitempty"`
}

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("server answered %d: %s", e.Status, e.Message)
}

// API calls the HTTP surface of a TalentKeeper server.
type API struct {
	http     *httpclient.Client
	baseURL  string
	deviceID string
}

// NewAPI creates an API for the server at baseURL, e.g.
// "http://localhost:8080/morpheus".
func NewAPI(c *httpclient.Client, baseURL string) *API {
	return &API{http: c, baseURL: strings.TrimRight(baseURL, "/")}
}

// SetDeviceID makes later calls act on behalf of deviceID.
func (a *API) SetDeviceID(id string) { a.deviceID = id }

func (a *API) opts() []httpclient.RequestOption {
	if a.deviceID == "" {
		return nil
	}
	return []httpclient.RequestOption{httpclient.WithHeader("X-Device-ID", a.deviceID)}
}

// DeviceID asks the server for its device id.
func (a *API) DeviceID(ctx context.Context) (string, error) {
	var out struct {
		DeviceID string `json:"device_id"`
	}
	if err := a.getJSON(ctx, "/device_id", &out); err != nil {
		return "", err
	}
	return out.DeviceID, nil
}

// List fetches a page of talents.
func (a *API) List(ctx context.Context, q Query) (*Page, error) {
	v := url.Values{}
	for k, val := range q.Filters {
		v.Set(k, val)
	}
	v.Set("page", strconv.Itoa(max(q.Page, 1)))
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Remote {
		v.Set("use_remote", "true")
	} else {
		v.Set("catalog_path", q.CatalogPath)
		v.Set("images_folder", q.ImagesFolder)
	}

	var p Page
	if err := a.getJSON(ctx, "/talents?"+v.Encode(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Talent fetches one talent of the editable catalog.
func (a *API) Talent(ctx context.Context, id string) (*models.Talent, error) {
	var out struct {
		Talent models.Talent `json:"talent"`
	}
	if err := a.getJSON(ctx, "/talent/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out.Talent, nil
}

// ToggleFavorite flips the favorite flag of a talent and returns the new value.
func (a *API) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	body, err := json.Marshal(map[string]string{"talent_id": id})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/favorite", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range a.opts() {
		opt(req)
	}

	resp, err := a.http.Do(ctx, req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, apiError(resp)
	}

	var out struct {
		IsFavorite bool `json:"is_favorite"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode favorite response: %w", err)
	}
	return out.IsFavorite, nil
}

func (a *API) getJSON(ctx context.Context, path string, v any) error {
	resp, err := a.http.Get(ctx, a.baseURL+path, a.opts()...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	_ = json.Unmarshal(data, &body)
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}
