package selection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/Dan9191/finsight/internal/models"
	"github.com/Dan9191/finsight/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	files   []models.UploadedFile
	columns map[string][]string
	values  map[string][]any // file/column
	records map[string][]models.TransactionRecord
	gates   map[string]chan struct{} // file/column held until closed
	fail    map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		columns: map[string][]string{},
		values:  map[string][]any{},
		records: map[string][]models.TransactionRecord{},
		gates:   map[string]chan struct{}{},
		fail:    map[string]error{},
	}
}

func (f *fakeSource) ListUploads(context.Context) ([]models.UploadedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["list"]; err != nil {
		return nil, err
	}
	return f.files, nil
}

func (f *fakeSource) Columns(_ context.Context, file string) (*models.ColumnList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[file]; err != nil {
		return nil, err
	}
	return &models.ColumnList{Columns: f.columns[file]}, nil
}

func (f *fakeSource) ColumnValues(_ context.Context, file, column string) (*models.ColumnValues, error) {
	f.mu.Lock()
	gate := f.gates[file+"/"+column]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.ColumnValues{File: file, Column: column, Values: f.values[file+"/"+column]}, nil
}

func (f *fakeSource) Transactions(_ context.Context, file string) ([]models.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if recs := f.records[file]; len(recs) > 0 {
		return recs, nil
	}
	return nil, backend.ErrNoTransactions
}

func settle(t *testing.T, c *Controller) Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
	return c.Snapshot()
}

func portfolioSource() *fakeSource {
	src := newFakeSource()
	src.files = []models.UploadedFile{{Filename: "prices.csv"}, {Filename: "other.csv"}}
	src.columns["prices.csv"] = []string{"date", "SPY", "BND"}
	src.values["prices.csv/date"] = []any{"2024-01-01", "2024-02-01", "2024-03-01"}
	src.values["prices.csv/SPY"] = []any{100.0, 104.0, 103.0}
	src.values["prices.csv/BND"] = []any{50.0, 50.5, 51.0}
	src.columns["other.csv"] = []string{"amount"}
	src.values["other.csv/amount"] = []any{1.0, 2.0}
	return src
}

func TestRefresh_AutoSelectsFirstNumericColumn(t *testing.T) {
	c := New(portfolioSource(), logrus.New())
	defer c.Close()

	require.NoError(t, c.Refresh(context.Background()))
	snap := settle(t, c)

	assert.Equal(t, SeriesResolved, snap.State)
	assert.Equal(t, "prices.csv", snap.File)
	assert.Equal(t, "SPY", snap.Column)
	require.NotNil(t, snap.Series)
	assert.Equal(t, []float64{100, 104, 103}, snap.Series.Values)
	assert.Equal(t, OriginColumn, snap.Series.Origin)
	assert.False(t, snap.Loading)
}

func TestRefresh_NoFiles(t *testing.T) {
	c := New(newFakeSource(), logrus.New())
	defer c.Close()

	require.NoError(t, c.Refresh(context.Background()))
	snap := settle(t, c)
	assert.Equal(t, NoFilesAvailable, snap.State)
	assert.Empty(t, snap.Files)
	assert.Nil(t, snap.Series)
}

func TestRefresh_ListFailure(t *testing.T) {
	src := newFakeSource()
	src.fail["list"] = &backend.Error{Kind: backend.KindNetwork, Message: "request failed"}
	c := New(src, logrus.New())
	defer c.Close()

	err := c.Refresh(context.Background())
	assert.True(t, backend.IsKind(err, backend.KindNetwork))
	assert.NotEmpty(t, c.Snapshot().Error)
}

func TestSelectFile_ColumnFailureStaysInFileSelected(t *testing.T) {
	src := portfolioSource()
	src.fail["other.csv"] = errors.New("boom")
	c := New(src, logrus.New())
	defer c.Close()
	c.SetFiles(src.files)
	settle(t, c)

	require.NoError(t, c.SelectFile("other.csv"))
	snap := settle(t, c)
	assert.Equal(t, FileSelected, snap.State)
	assert.Contains(t, snap.Error, "boom")
	assert.False(t, snap.Loading)

	assert.ErrorIs(t, c.SelectFile("missing.csv"), ErrUnknownFile)
}

func TestSelectColumn_PrefersTransactions(t *testing.T) {
	src := newFakeSource()
	src.files = []models.UploadedFile{{Filename: "bank.csv"}}
	src.columns["bank.csv"] = []string{"amount", "type"}
	src.values["bank.csv/amount"] = []any{1.0}
	src.records["bank.csv"] = []models.TransactionRecord{
		{Amount: 3000, Type: "income"}, {Amount: 120, Type: "expense"},
	}
	c := New(src, logrus.New())
	defer c.Close()

	require.NoError(t, c.Refresh(context.Background()))
	snap := settle(t, c)
	require.NotNil(t, snap.Series)
	assert.Equal(t, OriginTransactions, snap.Series.Origin)
	assert.Equal(t, []float64{3000, 120}, snap.Series.Values)
	assert.Equal(t, []string{"income", "expense"}, snap.Series.Labels)
}

func TestSelectColumn_LabelsFromTypeColumn(t *testing.T) {
	src := newFakeSource()
	src.files = []models.UploadedFile{{Filename: "bank.csv"}}
	src.columns["bank.csv"] = []string{"date", "amount", "Type"}
	src.values["bank.csv/date"] = []any{"2024-01-01", "2024-01-02", "2024-01-03"}
	src.values["bank.csv/amount"] = []any{3000.0, "n/a", 45.0}
	src.values["bank.csv/Type"] = []any{"income", "expense", "expense"}
	c := New(src, logrus.New())
	defer c.Close()

	require.NoError(t, c.Refresh(context.Background()))
	snap := settle(t, c)
	require.NotNil(t, snap.Series)
	assert.Equal(t, []float64{3000, 45}, snap.Series.Values)
	assert.Equal(t, []string{"income", "expense"}, snap.Series.Labels)
}

func TestSelectColumn_NonNumeric(t *testing.T) {
	c := New(portfolioSource(), logrus.New())
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))
	settle(t, c)

	require.NoError(t, c.SelectColumn("date"))
	snap := settle(t, c)
	assert.Equal(t, ColumnSelected, snap.State)
	assert.Nil(t, snap.Series)
	assert.Contains(t, snap.Error, "no numeric values")

	assert.ErrorIs(t, c.SelectColumn("nope"), ErrUnknownColumn)
}

func TestSelectColumn_LastSelectionWins(t *testing.T) {
	src := portfolioSource()
	c := New(src, logrus.New())
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))
	settle(t, c)

	gate := make(chan struct{})
	src.mu.Lock()
	src.gates["prices.csv/SPY"] = gate
	src.mu.Unlock()

	require.NoError(t, c.SelectColumn("SPY"))
	require.NoError(t, c.SelectColumn("BND"))

	// let BND settle before the superseded SPY response arrives
	require.Eventually(t, func() bool { return c.Snapshot().State == SeriesResolved }, time.Second, 5*time.Millisecond)
	close(gate)
	snap := settle(t, c)

	assert.Equal(t, "BND", snap.Column)
	require.NotNil(t, snap.Series)
	assert.Equal(t, []float64{50, 50.5, 51}, snap.Series.Values)
}

func TestChangeInvalidatesDerivedState(t *testing.T) {
	c := New(portfolioSource(), logrus.New())
	defer c.Close()

	var mu sync.Mutex
	var seen []Snapshot
	c.OnChange(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	require.NoError(t, c.Refresh(context.Background()))
	settle(t, c)
	require.NoError(t, c.SelectFile("other.csv"))
	snap := settle(t, c)
	assert.Equal(t, []float64{1, 2}, snap.Series.Values)

	mu.Lock()
	defer mu.Unlock()
	// the first notification after switching files carries no series
	var switched *Snapshot
	for i := range seen {
		if seen[i].File == "other.csv" {
			switched = &seen[i]
			break
		}
	}
	require.NotNil(t, switched)
	assert.Nil(t, switched.Series)
	assert.Empty(t, switched.Columns)
	assert.Equal(t, FileSelected, switched.State)
}

func TestSetManual(t *testing.T) {
	c := New(portfolioSource(), logrus.New())
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))
	settle(t, c)

	err := c.SetManual(true, "10, x, 12")
	assert.ErrorContains(t, err, "not a number")
	assert.Equal(t, "SPY", c.Snapshot().Column)

	require.NoError(t, c.SetManual(true, "10, 12, 15"))
	snap := c.Snapshot()
	assert.True(t, snap.Manual)
	assert.Equal(t, OriginManual, snap.Series.Origin)
	assert.Equal(t, []float64{10, 12, 15}, snap.Series.Values)

	require.NoError(t, c.SetManual(false, ""))
	snap = settle(t, c)
	assert.False(t, snap.Manual)
	assert.Equal(t, OriginColumn, snap.Series.Origin)
	assert.Equal(t, "SPY", snap.Column)
}

func TestManualSurvivesEmptyUploadList(t *testing.T) {
	c := New(newFakeSource(), logrus.New())
	defer c.Close()
	require.NoError(t, c.SetManual(true, "1,2"))
	c.SetFiles(nil)

	snap := c.Snapshot()
	assert.Equal(t, SeriesResolved, snap.State)
	assert.Equal(t, []float64{1, 2}, snap.Series.Values)
}

func TestWatch_RefreshesOnUploadListChange(t *testing.T) {
	st := store.NewMemoryStore()
	src := portfolioSource()
	c := New(src, logrus.New())
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	key := store.Key("v1", store.KeyUploadedFiles)
	stop, err := c.Watch(ctx, st, key)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, store.SetJSON(ctx, st, key, []models.UploadedFile{{Filename: "other.csv"}}))
	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.File == "other.csv" && s.State == SeriesResolved
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStateText(t *testing.T) {
	b, err := SeriesResolved.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "series-resolved", string(b))
	assert.Equal(t, "state(9)", State(9).String())
}
