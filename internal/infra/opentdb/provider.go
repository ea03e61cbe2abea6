package opentdb

import (
	"context"

	"trivia-party-service/internal/domain"
)

// CategoryResolver maps a category display name to the provider's numeric id.
// Both the in-memory and Redis catalog caches satisfy it.
type CategoryResolver interface {
	Resolve(ctx context.Context, name string) (int, error)
}

// Provider implements the coordinator's question provider contract on top of
// the raw client plus a cached category catalog.
type Provider struct {
	client     *Client
	categories CategoryResolver
}

func NewProvider(client *Client, categories CategoryResolver) *Provider {
	return &Provider{client: client, categories: categories}
}

func (p *Provider) Fetch(ctx context.Context, count int, category string) ([]domain.QuestionContent, error) {
	categoryID, err := p.categories.Resolve(ctx, category)
	if err != nil {
		return nil, err
	}
	return p.client.FetchQuestions(ctx, count, categoryID)
}
