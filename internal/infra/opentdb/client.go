// Package opentdb adapts an Open Trivia DB-style HTTP API to the
// coordinator's question provider contract.
package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"trivia-party-service/internal/domain"
)

// DefaultBaseURL is the public Open Trivia DB endpoint.
const DefaultBaseURL = "https://opentdb.com"

// Client issues raw requests against the provider API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type questionResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// FetchQuestions requests count multiple-choice questions for a provider
// category id. Prompts and answers are HTML-unescaped.
func (c *Client) FetchQuestions(ctx context.Context, count, categoryID int) ([]domain.QuestionContent, error) {
	query := url.Values{}
	query.Set("amount", fmt.Sprint(count))
	query.Set("category", fmt.Sprint(categoryID))
	query.Set("type", "multiple")

	var decoded questionResponse
	if err := c.getJSON(ctx, "/api.php?"+query.Encode(), &decoded); err != nil {
		return nil, err
	}
	if decoded.ResponseCode != 0 {
		return nil, fmt.Errorf("provider response code %d", decoded.ResponseCode)
	}
	if len(decoded.Results) < count {
		return nil, fmt.Errorf("provider returned %d of %d questions", len(decoded.Results), count)
	}

	contents := make([]domain.QuestionContent, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		incorrect := make([]string, 0, len(result.IncorrectAnswers))
		for _, answer := range result.IncorrectAnswers {
			incorrect = append(incorrect, html.UnescapeString(answer))
		}
		contents = append(contents, domain.QuestionContent{
			Prompt:           html.UnescapeString(result.Question),
			CorrectAnswer:    html.UnescapeString(result.CorrectAnswer),
			IncorrectAnswers: incorrect,
		})
	}
	return contents, nil
}

type catalogResponse struct {
	TriviaCategories []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"trivia_categories"`
}

// LoadCatalog fetches the category catalog (display name to id). It satisfies
// the catalog cache's loader interface.
func (c *Client) LoadCatalog(ctx context.Context) (map[string]int, error) {
	var decoded catalogResponse
	if err := c.getJSON(ctx, "/api_category.php", &decoded); err != nil {
		return nil, err
	}
	if len(decoded.TriviaCategories) == 0 {
		return nil, fmt.Errorf("provider returned empty category catalog")
	}
	catalog := make(map[string]int, len(decoded.TriviaCategories))
	for _, category := range decoded.TriviaCategories {
		catalog[category.Name] = category.ID
	}
	return catalog, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
