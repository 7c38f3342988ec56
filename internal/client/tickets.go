package client

import (
	"context"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/deskline/deskline/internal/wire"
)

// TicketsService handles ticket-related API operations
type TicketsService struct {
	client *Client
}

// List retrieves tickets. Every query pair is sent as given; filtering is
// the server's job.
func (s *TicketsService) List(ctx context.Context, query url.Values) ([]byte, error) {
	req := s.client.r(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	return s.client.execute(req, resty.MethodGet, "/tickets")
}

// Get retrieves a specific ticket by ID
func (s *TicketsService) Get(ctx context.Context, id string) ([]byte, error) {
	if err := requireID("ticket_id", id); err != nil {
		return nil, err
	}
	return s.client.Get(ctx, "/tickets/{id}", map[string]string{"id": id})
}

// Create creates a ticket. The response must be a JSON object.
func (s *TicketsService) Create(ctx context.Context, body map[string]any) ([]byte, error) {
	resp, err := s.client.Post(ctx, "/tickets", nil, body)
	if err != nil {
		return nil, err
	}
	if _, err := wire.DecodeObject(resp); err != nil {
		return nil, invalid("create ticket", err.Error())
	}
	return resp, nil
}

// Update patches an existing ticket. The response must be a JSON object.
func (s *TicketsService) Update(ctx context.Context, id string, body map[string]any) ([]byte, error) {
	if err := requireID("ticket_id", id); err != nil {
		return nil, err
	}
	resp, err := s.client.Patch(ctx, "/tickets/{id}", map[string]string{"id": id}, body)
	if err != nil {
		return nil, err
	}
	if _, err := wire.DecodeObject(resp); err != nil {
		return nil, invalid("update ticket", err.Error())
	}
	return resp, nil
}

// Delete removes a ticket.
func (s *TicketsService) Delete(ctx context.Context, id string) error {
	if err := requireID("ticket_id", id); err != nil {
		return err
	}
	return s.client.Delete(ctx, "/tickets/{id}", map[string]string{"id": id})
}

// History retrieves the change log of a ticket.
func (s *TicketsService) History(ctx context.Context, id string) ([]byte, error) {
	if err := requireID("ticket_id", id); err != nil {
		return nil, err
	}
	return s.client.Get(ctx, "/tickets/{id}/history", map[string]string{"id": id})
}
