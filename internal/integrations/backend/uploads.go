package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/Dan9191/finsight/internal/models"
)

// ErrNoTransactions means the backend has no typed records for a file
var ErrNoTransactions = errors.New("typed transaction records not available")

// Upload sends a file to the backend for parsing and import
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadResult, error) {
	if filename == "" {
		return nil, validationError("upload", "file", "a file name is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	var res models.UploadResult
	if err := c.send(ctx, "upload", http.MethodPost, "/api/upload", &buf, mw.FormDataContentType(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListUploads returns the files the backend has parsed
func (c *Client) ListUploads(ctx context.Context) ([]models.UploadedFile, error) {
	var res models.UploadList
	if err := c.getJSON(ctx, "list-uploads", "/api/uploads", &res); err != nil {
		return nil, err
	}
	if res.Files == nil {
		return []models.UploadedFile{}, nil
	}
	return res.Files, nil
}

// Columns returns the column names and row count of a file
func (c *Client) Columns(ctx context.Context, file string) (*models.ColumnList, error) {
	var res models.ColumnList
	path := fmt.Sprintf("/api/uploads/%s/columns", url.PathEscape(file))
	if err := c.getJSON(ctx, "columns", path, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ColumnValues returns the values of one column of a file
func (c *Client) ColumnValues(ctx context.Context, file, column string) (*models.ColumnValues, error) {
	var res struct {
		Values []any `json:"values"`
	}
	path := fmt.Sprintf("/api/uploads/%s/column?name=%s", url.PathEscape(file), url.QueryEscape(column))
	if err := c.getJSON(ctx, "column-values", path, &res); err != nil {
		return nil, err
	}
	return &models.ColumnValues{File: file, Column: column, Values: res.Values}, nil
}

// Transactions returns typed transaction records of a file. It returns
// ErrNoTransactions when the backend has none, so callers can fall back
// to raw column values.
func (c *Client) Transactions(ctx context.Context, file string) ([]models.TransactionRecord, error) {
	var res models.TransactionsResponse
	path := fmt.Sprintf("/api/uploads/%s/transactions", url.PathEscape(file))
	err := c.getJSON(ctx, "transactions", path, &res)
	var be *Error
	if errors.As(err, &be) && (be.Status == http.StatusNotFound || be.Status == http.StatusMethodNotAllowed) {
		return nil, ErrNoTransactions
	}
	if err != nil {
		return nil, err
	}
	if len(res.Transactions) == 0 {
		return nil, ErrNoTransactions
	}
	return res.Transactions, nil
}
