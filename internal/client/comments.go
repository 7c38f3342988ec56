package client

import (
	"context"
)

// CommentsService reads and posts ticket comments.
type CommentsService struct {
	client *Client
}

// CommentRequest is the body of POST /tickets/{id}/comments.
type CommentRequest struct {
	Content         string `json:"content"`
	TicketCreatedAt string `json:"ticket_created_at"`
}

func (s *CommentsService) List(ctx context.Context, ticketID string) ([]byte, error) {
	if err := requireID("ticket_id", ticketID); err != nil {
		return nil, err
	}
	return s.client.Get(ctx, "/tickets/{id}/comments", map[string]string{"id": ticketID})
}

// Create posts content to a ticket. ticketCreatedAt is echoed back as the
// server sent it.
func (s *CommentsService) Create(ctx context.Context, ticketID, content, ticketCreatedAt string) ([]byte, error) {
	if err := requireID("ticket_id", ticketID); err != nil {
		return nil, err
	}
	req := CommentRequest{Content: content, TicketCreatedAt: ticketCreatedAt}
	return s.client.Post(ctx, "/tickets/{id}/comments", map[string]string{"id": ticketID}, req)
}
