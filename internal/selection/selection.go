// Package selection resolves the numeric series a visitor works with, from
// an uploaded file and column or from manually entered values.
//
// Every change bumps a generation counter. Fetches started for an older
// generation are cancelled and their results are dropped on arrival, so the
// last selection wins even when responses arrive out of order.
package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/Dan9191/finsight/internal/models"
	"github.com/Dan9191/finsight/internal/store"
	"github.com/Dan9191/finsight/internal/utils"
	"github.com/sirupsen/logrus"
)

// State of the selection pipeline
type State int

const (
	NoFilesAvailable State = iota
	FileSelected
	ColumnsLoaded
	ColumnSelected
	SeriesResolved
)

var stateNames = [...]string{"no-files", "file-selected", "columns-loaded", "column-selected", "series-resolved"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Series origins
const (
	OriginTransactions = "transactions"
	OriginColumn       = "column"
	OriginManual       = "manual"
)

var (
	ErrUnknownFile   = errors.New("file is not among the uploads")
	ErrUnknownColumn = errors.New("column is not in the selected file")
	ErrNoNumeric     = errors.New("column has no numeric values")
)

// Source is the part of the backend client the controller reads from
type Source interface {
	ListUploads(ctx context.Context) ([]models.UploadedFile, error)
	Columns(ctx context.Context, file string) (*models.ColumnList, error)
	ColumnValues(ctx context.Context, file, column string) (*models.ColumnValues, error)
	Transactions(ctx context.Context, file string) ([]models.TransactionRecord, error)
}

// Series is a resolved numeric series with optional per-value type labels
type Series struct {
	Values []float64 `json:"values"`
	Labels []string  `json:"labels,omitempty"`
	Origin string    `json:"origin"`
}

// Snapshot is a consistent view of the selection. Slices in a snapshot
// are never mutated after it is taken.
type Snapshot struct {
	State      State                 `json:"state"`
	Files      []models.UploadedFile `json:"files"`
	File       string                `json:"file,omitempty"`
	Columns    []string              `json:"columns,omitempty"`
	Column     string                `json:"column,omitempty"`
	Manual     bool                  `json:"manual"`
	ManualText string                `json:"manual_text,omitempty"`
	Series     *Series               `json:"series,omitempty"`
	Loading    bool                  `json:"loading"`
	Error      string                `json:"error,omitempty"`
	Generation uint64                `json:"generation"`
}

// Controller drives the selection state machine of one visitor
type Controller struct {
	src Source
	log *logrus.Entry

	mu        sync.Mutex
	snap      Snapshot
	cancel    context.CancelFunc
	inflight  int
	idle      chan struct{}
	listeners []func(Snapshot)
	closed    bool
}

// New creates a controller with no files
func New(src Source, log *logrus.Logger) *Controller {
	return &Controller{
		src:  src,
		log:  log.WithField("component", "selection"),
		snap: Snapshot{Files: []models.UploadedFile{}},
	}
}

// OnChange registers fn to run after every state change
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Snapshot returns the current selection
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Refresh reloads the upload list from the backend
func (c *Controller) Refresh(ctx context.Context) error {
	files, err := c.src.ListUploads(ctx)
	if err != nil {
		c.mu.Lock()
		c.snap.Error = err.Error()
		snap := c.snap
		c.mu.Unlock()
		c.emit(snap)
		return fmt.Errorf("failed to list uploads: %w", err)
	}
	c.SetFiles(files)
	return nil
}

// SetFiles applies a new upload list. The current file stays selected when
// it is still listed, otherwise the first file is selected.
func (c *Controller) SetFiles(files []models.UploadedFile) {
	if files == nil {
		files = []models.UploadedFile{}
	}

	c.mu.Lock()
	c.snap.Files = files
	c.snap.Error = ""
	if c.snap.File != "" && hasFile(files, c.snap.File) {
		snap := c.snap
		c.mu.Unlock()
		c.emit(snap)
		return
	}
	if len(files) == 0 {
		gen, _ := c.begin()
		prev := c.snap
		c.snap = Snapshot{State: NoFilesAvailable, Files: files, Generation: gen}
		if prev.Manual {
			// manual input does not depend on uploads
			c.snap.State = SeriesResolved
			c.snap.Manual, c.snap.ManualText, c.snap.Series = true, prev.ManualText, prev.Series
		}
		snap := c.snap
		c.mu.Unlock()
		c.emit(snap)
		return
	}
	first := files[0].Filename
	c.mu.Unlock()

	if err := c.SelectFile(first); err != nil {
		c.log.Warnf("Failed to auto-select %s: %v", first, err)
	}
}

// SelectFile selects a file and loads its columns in the background. The
// first column holding numeric values is selected once they arrive.
func (c *Controller) SelectFile(file string) error {
	c.mu.Lock()
	if !hasFile(c.snap.Files, file) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownFile, file)
	}
	gen, ctx := c.begin()
	c.snap = Snapshot{
		State:      FileSelected,
		Files:      c.snap.Files,
		File:       file,
		Loading:    true,
		Generation: gen,
	}
	snap := c.snap
	c.mu.Unlock()

	c.emit(snap)
	c.run(func() { c.loadColumns(ctx, gen, file) })
	return nil
}

// SelectColumn selects a column of the current file and resolves its series
func (c *Controller) SelectColumn(column string) error {
	c.mu.Lock()
	if c.snap.State < ColumnsLoaded || !contains(c.snap.Columns, column) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	gen, ctx := c.begin()
	c.snap.State = ColumnSelected
	c.snap.Column = column
	c.snap.Manual, c.snap.ManualText = false, ""
	c.snap.Series = nil
	c.snap.Loading = true
	c.snap.Error = ""
	file, columns := c.snap.File, c.snap.Columns
	snap := c.snap
	c.mu.Unlock()

	c.emit(snap)
	c.run(func() { c.resolve(ctx, gen, file, column, columns, nil) })
	return nil
}

// SetManual switches manual input on or off. Enabled input must parse
// completely; disabling resumes the file and column selection.
func (c *Controller) SetManual(enabled bool, text string) error {
	if enabled {
		values, err := utils.ParseSeries(text)
		if err != nil {
			return fmt.Errorf("invalid manual series: %w", err)
		}
		c.mu.Lock()
		c.begin()
		c.snap.Manual, c.snap.ManualText = true, text
		c.snap.Series = &Series{Values: values, Origin: OriginManual}
		c.snap.State = SeriesResolved
		c.snap.Loading = false
		c.snap.Error = ""
		snap := c.snap
		c.mu.Unlock()
		c.emit(snap)
		return nil
	}

	c.mu.Lock()
	if !c.snap.Manual {
		c.mu.Unlock()
		return nil
	}
	file, column, columns, files := c.snap.File, c.snap.Column, c.snap.Columns, c.snap.Files
	c.mu.Unlock()

	switch {
	case file != "" && column != "":
		return c.SelectColumn(column)
	case file != "":
		return c.SelectFile(file)
	case len(files) > 0:
		return c.SelectFile(files[0].Filename)
	}

	c.mu.Lock()
	gen, _ := c.begin()
	c.snap = Snapshot{State: NoFilesAvailable, Files: files, Columns: columns, Generation: gen}
	snap := c.snap
	c.mu.Unlock()
	c.emit(snap)
	return nil
}

// Wait blocks until no fetch is in flight
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	if c.inflight == 0 {
		c.mu.Unlock()
		return nil
	}
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch refreshes the file list whenever key changes in st. key holds the
// JSON upload list written after each upload.
func (c *Controller) Watch(ctx context.Context, st store.Store, key string) (func(), error) {
	changes, cancel, err := st.Subscribe(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", key, err)
	}
	go func() {
		for ch := range changes {
			var files []models.UploadedFile
			if !ch.Deleted {
				if _, err := store.GetJSON(ctx, st, key, &files); err != nil {
					c.log.Warnf("Failed to read upload list: %v", err)
					continue
				}
			}
			c.SetFiles(files)
		}
	}()
	return cancel, nil
}

// Close cancels in-flight fetches and waits for them to stop
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	_ = c.Wait(context.Background())
}

// begin starts a new generation, cancelling the previous one. Callers hold mu.
func (c *Controller) begin() (uint64, context.Context) {
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	if c.closed {
		cancel()
	}
	c.cancel = cancel
	c.snap.Generation++
	return c.snap.Generation, ctx
}

// commit applies fn when gen is still current and reports whether it did
func (c *Controller) commit(gen uint64, fn func(*Snapshot)) bool {
	c.mu.Lock()
	if c.snap.Generation != gen {
		c.mu.Unlock()
		return false
	}
	fn(&c.snap)
	snap := c.snap
	c.mu.Unlock()
	c.emit(snap)
	return true
}

func (c *Controller) emit(snap Snapshot) {
	c.mu.Lock()
	listeners := append([]func(Snapshot){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func (c *Controller) run(fn func()) {
	c.mu.Lock()
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			c.inflight--
			if c.inflight == 0 {
				close(c.idle)
			}
			c.mu.Unlock()
		}()
		fn()
	}()
}

func (c *Controller) fail(gen uint64, err error) {
	c.commit(gen, func(s *Snapshot) {
		s.Loading = false
		s.Error = err.Error()
	})
}

func (c *Controller) loadColumns(ctx context.Context, gen uint64, file string) {
	cols, err := c.src.Columns(ctx, file)
	if err != nil {
		c.fail(gen, fmt.Errorf("failed to load columns of %s: %w", file, err))
		return
	}
	if len(cols.Columns) == 0 {
		c.fail(gen, fmt.Errorf("%s has no columns", file))
		return
	}
	if !c.commit(gen, func(s *Snapshot) {
		s.Columns = cols.Columns
		s.State = ColumnsLoaded
	}) {
		return
	}

	column, sample := c.pickColumn(ctx, file, cols.Columns)
	if !c.commit(gen, func(s *Snapshot) {
		s.Column = column
		s.State = ColumnSelected
	}) {
		return
	}
	c.resolve(ctx, gen, file, column, cols.Columns, sample)
}

// pickColumn tries columns in order for the first holding numeric values.
// The values it fetched are returned so resolve does not fetch them again.
func (c *Controller) pickColumn(ctx context.Context, file string, columns []string) (string, *models.ColumnValues) {
	for _, col := range columns {
		if ctx.Err() != nil {
			break
		}
		vals, err := c.src.ColumnValues(ctx, file, col)
		if err != nil {
			c.log.Debugf("Reading %s/%s failed: %v", file, col, err)
			continue
		}
		if len(vals.Numbers()) > 0 {
			return col, vals
		}
	}
	return columns[0], nil
}

func (c *Controller) resolve(ctx context.Context, gen uint64, file, column string, columns []string, sample *models.ColumnValues) {
	series, err := c.fetchSeries(ctx, file, column, columns, sample)
	c.commit(gen, func(s *Snapshot) {
		s.Loading = false
		if err != nil {
			s.Error = err.Error()
			return
		}
		s.Series = series
		s.State = SeriesResolved
	})
}

// fetchSeries prefers typed transaction records and falls back to the
// values of the column, labelled by a type column when the file has one.
func (c *Controller) fetchSeries(ctx context.Context, file, column string, columns []string, sample *models.ColumnValues) (*Series, error) {
	recs, err := c.src.Transactions(ctx, file)
	if err == nil {
		s := &Series{Values: make([]float64, 0, len(recs)), Labels: make([]string, 0, len(recs)), Origin: OriginTransactions}
		for _, r := range recs {
			s.Values = append(s.Values, r.Amount)
			s.Labels = append(s.Labels, r.Type)
		}
		return s, nil
	}
	if !errors.Is(err, backend.ErrNoTransactions) {
		c.log.Debugf("Typed records of %s unavailable: %v", file, err)
	}

	vals := sample
	if vals == nil || vals.Column != column {
		vals, err = c.src.ColumnValues(ctx, file, column)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s/%s: %w", file, column, err)
		}
	}

	var labels []string
	if typeCol := typeColumn(columns); typeCol != "" && typeCol != column {
		tv, err := c.src.ColumnValues(ctx, file, typeCol)
		if err == nil && len(tv.Values) == len(vals.Values) {
			labels = tv.Labels()
		}
	}

	s := &Series{Origin: OriginColumn}
	for i, v := range vals.Values {
		f, ok := models.ToFloat(v)
		if !ok {
			continue
		}
		s.Values = append(s.Values, f)
		if labels != nil {
			s.Labels = append(s.Labels, labels[i])
		}
	}
	if len(s.Values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoNumeric, column)
	}
	return s, nil
}

func typeColumn(columns []string) string {
	for _, col := range columns {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "type", "transaction_type", "kind":
			return col
		}
	}
	return ""
}

func hasFile(files []models.UploadedFile, name string) bool {
	for _, f := range files {
		if f.Filename == name {
			return true
		}
	}
	return false
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}
