package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Dan9191/finsight/internal/analytics"
	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/Dan9191/finsight/internal/integrations/statement"
	"github.com/Dan9191/finsight/internal/models"
	"github.com/Dan9191/finsight/internal/store"
)

// MaxUploadSize bounds the size of an uploaded file
const MaxUploadSize = 32 << 20

// UploadView is the result of an upload
type UploadView struct {
	Result    *models.UploadResult      `json:"result"`
	Portfolio *models.PortfolioSnapshot `json:"portfolio,omitempty"`
	// Converted is set when a bank statement was converted to CSV first
	Converted bool                  `json:"converted,omitempty"`
	Entries   int                   `json:"entries,omitempty"`
	Files     []models.UploadedFile `json:"files"`
}

// Upload sends a file to the backend, derives the portfolio snapshot from
// its preview and refreshes the cached upload list
func (s *Service) Upload(ctx context.Context, visitorID, filename string, r io.Reader) (*UploadView, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return nil, invalid("file", "choose a file to upload")
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, invalid("file", "%s is empty", filename)
	}
	if len(data) > MaxUploadSize {
		return nil, invalid("file", "%s is larger than %d MB", filename, MaxUploadSize>>20)
	}

	sess, err := s.Session(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	client := s.client.WithToken(sess.Token)

	view := &UploadView{}
	head := data[:min(len(data), 1024)]
	if statement.IsStatement(filename, head) {
		csv, n, err := statement.ToCSV(data)
		if err != nil {
			return nil, invalid("file", "%v", err)
		}
		data = csv
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".csv"
		view.Converted, view.Entries = true, n
	}

	res, err := client.Upload(ctx, filename, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	view.Result = res

	portfolioKey := store.Key(visitorID, store.KeyPortfolio)
	if snap, ok := analytics.DetectPortfolio(res); ok {
		if err := store.SetJSON(ctx, s.store, portfolioKey, snap); err != nil {
			return nil, err
		}
		view.Portfolio = snap
		s.log.Infof("Portfolio detected in %s: %d assets", filename, len(snap.Assets))
	} else if err := s.store.Delete(ctx, portfolioKey); err != nil {
		return nil, fmt.Errorf("failed to clear portfolio: %w", err)
	}

	files, err := s.refreshUploads(ctx, visitorID, client)
	if err != nil {
		s.log.Warnf("Upload list refresh failed after %s: %v", filename, err)
		files = []models.UploadedFile{}
	}
	view.Files = files
	return view, nil
}

// Uploads returns the cached upload list, loading it on first use
func (s *Service) Uploads(ctx context.Context, visitorID string) ([]models.UploadedFile, error) {
	var files []models.UploadedFile
	ok, err := store.GetJSON(ctx, s.store, store.Key(visitorID, store.KeyUploadedFiles), &files)
	if err != nil {
		return nil, err
	}
	if ok {
		return files, nil
	}

	sess, err := s.Session(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	return s.refreshUploads(ctx, visitorID, s.client.WithToken(sess.Token))
}

// refreshUploads stores the backend upload list; subscribers of the key
// pick it up from there
func (s *Service) refreshUploads(ctx context.Context, visitorID string, client *backend.Client) ([]models.UploadedFile, error) {
	files, err := client.ListUploads(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.SetJSON(ctx, s.store, store.Key(visitorID, store.KeyUploadedFiles), files); err != nil {
		return nil, err
	}
	return files, nil
}
