package finbuddy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Blob is a binary response. The caller must close Body.
type Blob struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// DownloadReportPDF streams the PDF report of a portfolio.
func (c *Client) DownloadReportPDF(ctx context.Context, portfolioID int64) (*Blob, error) {
	resp, err := c.Get(ctx, fmt.Sprintf("/reports/portfolio/%d/pdf", portfolioID))
	if err != nil {
		return nil, err
	}

	if err := CheckResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	return &Blob{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

// SendReportEmail asks the backend to e-mail the report to email.
func (c *Client) SendReportEmail(ctx context.Context, portfolioID int64, email string) error {
	path := withQuery("/reports/email", map[string]string{
		"portfolioId": strconv.FormatInt(portfolioID, 10),
		"email":       email,
	})

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.call(ctx, http.MethodPost, path, nil, &result); err != nil {
		return err
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "failed to send report"
		}
		return &APIError{StatusCode: http.StatusOK, Message: msg}
	}
	return nil
}
