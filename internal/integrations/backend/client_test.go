package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dan9191/finsight/internal/config"
	"github.com/Dan9191/finsight/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *int32) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	cfg := &config.Config{BackendURL: srv.URL, BackendTimeout: 2 * time.Second}
	return NewClient(cfg, logrus.New()), &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestForecast_SendsValuesAndSteps(t *testing.T) {
	var got models.ForecastRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/forecast", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"forecast": []float64{19.1, 20.4, 21.9}})
	})

	res, err := c.Forecast(context.Background(), []float64{10, 12, 15, 14, 18}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 12, 15, 14, 18}, got.Values)
	assert.Equal(t, 3, got.Steps)
	assert.Equal(t, []float64{19.1, 20.4, 21.9}, res.Forecast)
}

func TestForecast_ValidatesBeforeCalling(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})

	_, err := c.Forecast(context.Background(), nil, 3)
	assert.True(t, IsKind(err, KindValidation))

	_, err = c.Forecast(context.Background(), []float64{1}, 0)
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestForecast_WrongLength(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"forecast": []float64{1}})
	})
	_, err := c.Forecast(context.Background(), []float64{1, 2}, 3)
	assert.True(t, IsKind(err, KindValidation))
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnauthorized, KindAuth},
		{http.StatusInternalServerError, KindServer},
		{http.StatusBadGateway, KindServer},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tc.status, map[string]any{"detail": "boom"})
		})
		_, err := c.Forecast(context.Background(), []float64{1}, 1)
		require.Error(t, err)
		var be *Error
		require.ErrorAs(t, err, &be)
		assert.Equal(t, tc.kind, be.Kind, "status %d", tc.status)
		assert.Equal(t, tc.status, be.Status)
		assert.Equal(t, "boom", be.Message)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(&config.Config{BackendURL: srv.URL}, logrus.New())

	_, err := c.ListUploads(context.Background())
	assert.True(t, IsKind(err, KindNetwork))
}

func TestTimeoutIsNetworkError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]any{"forecast": []float64{1}})
	})
	c.client.Timeout = 50 * time.Millisecond

	_, err := c.Forecast(context.Background(), []float64{1}, 1)
	assert.True(t, IsKind(err, KindNetwork))
}

func TestSimulate_DefaultPathsAndLengths(t *testing.T) {
	var got models.SimulationRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		n := got.Years*12 + 1
		traj := make([]float64, n)
		writeJSON(w, http.StatusOK, map[string]any{
			"worst": traj, "median": traj, "best": traj, "goal_probability": 0.734,
		})
	})

	res, err := c.Simulate(context.Background(), models.SimulationRequest{
		Initial: 10000, Monthly: 500, Mean: 0.08, Std: 0.15, Years: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, got.Paths)
	assert.Len(t, res.Median, 121)
	pct, ok := res.SuccessPercent()
	require.True(t, ok)
	assert.Equal(t, 73, pct)
}

func TestSimulate_WrappedResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		traj := make([]float64, 13)
		writeJSON(w, http.StatusOK, map[string]any{
			"simulation": map[string]any{"worst": traj, "median": traj, "best": traj},
		})
	})
	res, err := c.Simulate(context.Background(), models.SimulationRequest{Years: 1, Paths: 10})
	require.NoError(t, err)
	assert.Len(t, res.Best, 13)
	_, ok := res.SuccessPercent()
	assert.False(t, ok)
}

func TestSimulate_MismatchedTrajectories(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"worst": make([]float64, 13), "median": make([]float64, 12), "best": make([]float64, 13),
		})
	})
	_, err := c.Simulate(context.Background(), models.SimulationRequest{Years: 1, Paths: 10})
	assert.True(t, IsKind(err, KindValidation))
}

func TestOptimize_RejectsMismatchWithoutCalling(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})

	_, err := c.Optimize(context.Background(), []string{"A", "B"}, []float64{0.1}, "balanced")
	assert.True(t, IsKind(err, KindValidation))
	_, err = c.Optimize(context.Background(), nil, nil, "balanced")
	assert.True(t, IsKind(err, KindValidation))
	_, err = c.Optimize(context.Background(), []string{"A"}, nil, "balanced")
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestOptimize_MissingWeights(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	res, err := c.Optimize(context.Background(),
		[]string{"US_Stocks", "Bonds", "Gold", "Cash"}, []float64{0.08, 0.03, 0.05, 0.01}, "growth")
	assert.Nil(t, res)
	assert.True(t, IsKind(err, KindValidation))
}

func TestOptimize_ChecksWeights(t *testing.T) {
	weights := []float64{0.5, 0.3, 0.1}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.OptimizationRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "balanced", req.Goal)
		writeJSON(w, http.StatusOK, map[string]any{"weights": weights})
	})
	assets := []string{"A", "B", "C"}
	returns := []float64{0.1, 0.2, 0.3}

	_, err := c.Optimize(context.Background(), assets, returns, "")
	assert.True(t, IsKind(err, KindValidation), "weights sum to 0.9")

	weights = []float64{0.6, 0.3, 0.1}
	res, err := c.Optimize(context.Background(), assets, returns, "")
	require.NoError(t, err)
	assert.Equal(t, weights, res.Weights)

	weights = []float64{1.2, -0.2, 0}
	_, err = c.Optimize(context.Background(), assets, returns, "")
	assert.True(t, IsKind(err, KindValidation))
}

func TestBearerToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"files": []map[string]any{{"filename": "a.csv"}}})
	})
	files, err := c.WithToken("tok-123").ListUploads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.UploadedFile{{Filename: "a.csv"}}, files)
	assert.Empty(t, c.token)
}

func TestBearerFromContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer from-ctx", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "analysis": "ok"})
	})
	res, err := c.AskAI(WithBearer(context.Background(), "from-ctx"), "/api/ai/ask", map[string]string{"question": "q"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text())
}

func TestUploadsAndColumns(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/upload":
			f, hdr, err := r.FormFile("file")
			if !assert.NoError(t, err) {
				return
			}
			body, _ := io.ReadAll(f)
			assert.Equal(t, "bank.csv", hdr.Filename)
			assert.Equal(t, "date,amount\n", string(body))
			writeJSON(w, http.StatusOK, map[string]any{
				"filename": "bank.csv", "rows": 1, "columns": []string{"date", "amount"}, "file_type": "transactions",
			})
		case r.URL.Path == "/api/uploads/my file.csv/columns":
			writeJSON(w, http.StatusOK, map[string]any{"columns": []string{"amount"}, "rows": 3})
		case r.URL.Path == "/api/uploads/my file.csv/column":
			assert.Equal(t, "amount", r.URL.Query().Get("name"))
			writeJSON(w, http.StatusOK, map[string]any{"values": []any{1.5, "2", "x"}})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	up, err := c.Upload(ctx, "bank.csv", strings.NewReader("date,amount\n"))
	require.NoError(t, err)
	assert.Equal(t, models.FileTypeTransactions, up.FileType)

	cols, err := c.Columns(ctx, "my file.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, cols.Rows)

	vals, err := c.ColumnValues(ctx, "my file.csv", "amount")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2}, vals.Numbers())

	_, err = c.Transactions(ctx, "my file.csv")
	assert.ErrorIs(t, err, ErrNoTransactions)
}

func TestLogin(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "jwt", "user": map[string]any{"id": "7", "email": "a@b.c"}})
	})
	res, err := c.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.AccessToken)
	assert.Equal(t, "a@b.c", res.User.Email)

	_, err = c.Login(context.Background(), "", "pw")
	assert.True(t, IsKind(err, KindValidation))
}
