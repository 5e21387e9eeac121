package service

import (
	"context"
	"errors"

	"github.com/Dan9191/finsight/internal/selection"
)

// SelectionView is the dataset selection with per-action loading flags
type SelectionView struct {
	selection.Snapshot
	Actions map[string]bool `json:"actions"`
}

// SelectionUpdate changes the selection. Manual, when set, wins over
// File and Column.
type SelectionUpdate struct {
	File       string `json:"file"`
	Column     string `json:"column"`
	Manual     *bool  `json:"manual"`
	ManualText string `json:"manual_text"`
}

// Selection returns the current selection, loading the upload list first
// when this visitor has not seen it yet
func (s *Service) Selection(ctx context.Context, visitorID string) (*SelectionView, error) {
	v, err := s.selectionFor(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	return s.selectionView(ctx, v)
}

// UpdateSelection applies a selection change and waits for it to settle
func (s *Service) UpdateSelection(ctx context.Context, visitorID string, upd SelectionUpdate) (*SelectionView, error) {
	v, err := s.selectionFor(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	ctrl := v.selection

	switch {
	case upd.Manual != nil:
		if err := ctrl.SetManual(*upd.Manual, upd.ManualText); err != nil {
			return nil, invalid("manual_text", "%v", errors.Unwrap(err))
		}
	case upd.File != "":
		if err := ctrl.SelectFile(upd.File); err != nil {
			return nil, invalid("file", "%v", err)
		}
		if upd.Column != "" {
			if err := ctrl.Wait(ctx); err != nil {
				return nil, err
			}
			if err := ctrl.SelectColumn(upd.Column); err != nil {
				return nil, invalid("column", "%v", err)
			}
		}
	case upd.Column != "":
		if err := ctrl.SelectColumn(upd.Column); err != nil {
			return nil, invalid("column", "%v", err)
		}
	default:
		return nil, invalid("selection", "choose a file, a column or manual input")
	}
	return s.selectionView(ctx, v)
}

func (s *Service) selectionFor(ctx context.Context, visitorID string) (*visitor, error) {
	sess, err := s.Session(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	v := s.visitorFor(visitorID, sess.Token)

	v.mu.Lock()
	first := !v.refreshed
	v.refreshed = true
	v.mu.Unlock()

	if first {
		files, err := s.Uploads(ctx, visitorID)
		if err != nil {
			v.mu.Lock()
			v.refreshed = false
			v.mu.Unlock()
			return nil, err
		}
		v.selection.SetFiles(files)
	}
	return v, nil
}

func (s *Service) selectionView(ctx context.Context, v *visitor) (*SelectionView, error) {
	if err := v.selection.Wait(ctx); err != nil {
		return nil, err
	}
	return &SelectionView{Snapshot: v.selection.Snapshot(), Actions: v.loading()}, nil
}

// series returns the resolved series of a visitor, if any
func (v *visitor) series() *selection.Series {
	snap := v.selection.Snapshot()
	if snap.State != selection.SeriesResolved {
		return nil
	}
	return snap.Series
}
