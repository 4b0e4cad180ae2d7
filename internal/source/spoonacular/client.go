// Package spoonacular implements the source.Source adapter for the
// Spoonacular recipe API.
package spoonacular

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	pantry "github.com/telliott/pantry/internal"
	"github.com/telliott/pantry/internal/source"
)

const (
	defaultBaseURL = "https://api.spoonacular.com"
	sourceName     = "spoonacular"
)

var _ source.Source = (*Client)(nil)

// Client is a Spoonacular adapter that implements source.Source.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	http       *http.Client
}

// New creates a Spoonacular Client. If baseURL is empty, it defaults to
// "https://api.spoonacular.com". maxResults caps the number of recipes
// requested per search (the API default is 10, the API maximum is 100).
func New(baseURL, apiKey string, maxResults int, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxResults: maxResults,
		http:       client,
	}
}

// Name returns the source identifier.
func (c *Client) Name() string { return sourceName }

// Search sends one GET to /recipes/findByIngredients and parses the response.
// There are no retries; the first failure is reported as-is.
func (c *Client) Search(ctx context.Context, ingredients []string) ([]pantry.Recipe, error) {
	q := url.Values{}
	q.Set("ingredients", strings.Join(ingredients, ","))
	q.Set("number", strconv.Itoa(c.maxResults))
	q.Set("apiKey", c.apiKey)

	reqURL := c.baseURL + "/recipes/findByIngredients?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("spoonacular: create request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("spoonacular: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, source.ParseAPIError(sourceName, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("spoonacular: read response: %w", err)
	}

	return parseRecipes(body)
}

// parseRecipes decodes a findByIngredients payload, failing closed: any shape
// that is not an array of objects carrying an integer id and a string title
// is rejected wholesale rather than producing a partial result.
func parseRecipes(body []byte) ([]pantry.Recipe, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("spoonacular: invalid JSON in response")
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("spoonacular: unexpected response shape: not an array")
	}

	var recipes []pantry.Recipe
	var parseErr error
	parsed.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			parseErr = fmt.Errorf("spoonacular: unexpected response shape: non-object element")
			return false
		}
		id := item.Get("id")
		title := item.Get("title")
		if id.Type != gjson.Number || title.Type != gjson.String {
			parseErr = fmt.Errorf("spoonacular: unexpected response shape: missing id or title")
			return false
		}
		recipes = append(recipes, pantry.Recipe{
			ID:                id.Int(),
			Title:             title.String(),
			Image:             item.Get("image").String(),
			UsedIngredients:   ingredientNames(item.Get("usedIngredients")),
			MissedIngredients: ingredientNames(item.Get("missedIngredients")),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return recipes, nil
}

// ingredientNames extracts the name field from an ingredient array.
func ingredientNames(arr gjson.Result) []string {
	if !arr.IsArray() {
		return nil
	}
	var names []string
	arr.ForEach(func(_, item gjson.Result) bool {
		if name := item.Get("name"); name.Type == gjson.String {
			names = append(names, name.String())
		}
		return true
	})
	return names
}

// HealthCheck verifies connectivity to the API host. Any HTTP response counts
// as reachable; only transport failures are reported.
func (c *Client) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("spoonacular: create request: %w", err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("spoonacular: health check: %w", err)
	}
	resp.Body.Close()
	return nil
}
