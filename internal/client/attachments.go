package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/deskline/deskline/internal/apierrors"
)

// AttachmentsService handles ticket attachments.
type AttachmentsService struct {
	client *Client
}

const (
	attachmentsRoute = "/tickets/{id}/attachments"
	attachmentRoute  = "/tickets/{id}/attachments/{att_id}"
	downloadRoute    = "/tickets/{id}/attachments/{att_id}/download"
)

func (s *AttachmentsService) List(ctx context.Context, ticketID string) ([]byte, error) {
	if err := requireID("ticket_id", ticketID); err != nil {
		return nil, err
	}
	return s.client.Get(ctx, attachmentsRoute, map[string]string{"id": ticketID})
}

// Upload sends content as the multipart field "file".
func (s *AttachmentsService) Upload(ctx context.Context, ticketID, filename string, content io.Reader) ([]byte, error) {
	if err := requireID("ticket_id", ticketID); err != nil {
		return nil, err
	}
	req := s.client.r(ctx).
		SetPathParams(map[string]string{"id": ticketID}).
		SetFileReader("file", filename, content)
	return s.client.execute(req, resty.MethodPost, attachmentsRoute)
}

func (s *AttachmentsService) Delete(ctx context.Context, ticketID, attachmentID string) error {
	if err := requireID("ticket_id", ticketID); err != nil {
		return err
	}
	if err := requireID("attachment_id", attachmentID); err != nil {
		return err
	}
	return s.client.Delete(ctx, attachmentRoute, map[string]string{"id": ticketID, "att_id": attachmentID})
}

// Download streams the attachment body into w and returns the filename
// from Content-Disposition, if the server sent one.
func (s *AttachmentsService) Download(ctx context.Context, ticketID, attachmentID string, w io.Writer) (string, error) {
	if err := requireID("ticket_id", ticketID); err != nil {
		return "", err
	}
	if err := requireID("attachment_id", attachmentID); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := s.client.r(ctx).
		SetPathParams(map[string]string{"id": ticketID, "att_id": attachmentID}).
		SetHeader("Accept", "*/*").
		SetDoNotParseResponse(true).
		Get(downloadRoute)
	if err != nil {
		err = &apierrors.NetworkError{Operation: resty.MethodGet, URL: s.client.baseURL + downloadRoute, Err: err}
		s.client.metrics.observe(resty.MethodGet, downloadRoute, err, time.Since(start))
		return "", err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		data, _ := io.ReadAll(body)
		apiErr := apierrors.FromResponse(resp.StatusCode(), data)
		s.client.metrics.observe(resty.MethodGet, downloadRoute, apiErr, time.Since(start))
		return "", apiErr
	}

	if _, err := io.Copy(w, body); err != nil {
		err = &apierrors.NetworkError{Operation: resty.MethodGet, URL: s.client.baseURL + downloadRoute, Err: fmt.Errorf("read body: %w", err)}
		s.client.metrics.observe(resty.MethodGet, downloadRoute, err, time.Since(start))
		return "", err
	}
	s.client.metrics.observe(resty.MethodGet, downloadRoute, nil, time.Since(start))

	_, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition"))
	if err != nil {
		return "", nil
	}
	return params["filename"], nil
}
