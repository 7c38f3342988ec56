package client

import "context"

// DictionaryService reads the lookup tables: departments, roles, ticket
// statuses and ticket priorities.
type DictionaryService struct {
	client *Client
}

func (s *DictionaryService) Departments(ctx context.Context) ([]byte, error) {
	return s.client.Get(ctx, "/departments", nil)
}

func (s *DictionaryService) Roles(ctx context.Context) ([]byte, error) {
	return s.client.Get(ctx, "/roles", nil)
}

func (s *DictionaryService) Statuses(ctx context.Context) ([]byte, error) {
	return s.client.Get(ctx, "/ticket_statuses", nil)
}

func (s *DictionaryService) Priorities(ctx context.Context) ([]byte, error) {
	return s.client.Get(ctx, "/ticket_priorities", nil)
}

// UsersService lists users for assignee selection and history actors.
type UsersService struct {
	client *Client
}

func (s *UsersService) List(ctx context.Context) ([]byte, error) {
	return s.client.Get(ctx, "/users", nil)
}
