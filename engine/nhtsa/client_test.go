package nhtsa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/defectscope/defectscope/engine/cache"
	"github.com/defectscope/defectscope/engine/domain"
	"github.com/defectscope/defectscope/pkg/fn"
	"golang.org/x/time/rate"
)

// testClient builds a Client pointed at srv with fast retries and no rate
// limiting. store may be nil.
func testClient(srv *httptest.Server, store *cache.Disk) *Client {
	return New(store, Config{
		RecallsBaseURL: srv.URL,
		VPICBaseURL:    srv.URL,
		Retry: fn.RetryOpts{
			MaxAttempts: 4,
			InitialWait: time.Millisecond,
			MaxWait:     5 * time.Millisecond,
		},
		RateLimit: rate.Inf,
		RateBurst: 1,
	}, nil, nil)
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results": [{"ok": true}]}`))
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	rows, err := c.RecallsByVehicle(context.Background(), "HONDA", "CIVIC", 2020)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestGetJSONRetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	_, err := c.RecallsByVehicle(context.Background(), "HONDA", "CIVIC", 2020)
	if !domain.IsRemote(err) {
		t.Fatalf("expected a remote error, got %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("expected 4 attempts, got %d", got)
	}
	var re *domain.RemoteError
	if errors.As(err, &re) && re.Status != http.StatusBadGateway {
		t.Fatalf("expected status 502 on the error, got %d", re.Status)
	}
}

func TestGetJSONClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	_, err := c.RecallsByVehicle(context.Background(), "HONDA", "CIVIC", 2020)
	if !domain.IsRemote(err) {
		t.Fatalf("expected a remote error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("400 should not be retried, got %d attempts", got)
	}
}

func TestNotFoundIsEmptyDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	rows, err := c.ComplaintsByVehicle(context.Background(), "HONDA", "CIVIC", 2020)
	if err != nil {
		t.Fatalf("404 should not error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty dataset, got %d rows", len(rows))
	}
}

func TestInvalidJSONBodyNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	_, err := c.RecallsByVehicle(context.Background(), "HONDA", "CIVIC", 2020)
	if !domain.IsRemote(err) {
		t.Fatalf("expected a remote error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("invalid body should not be retried, got %d attempts", got)
	}
}

func TestCacheServesSecondFetch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"results": [{"n": 1}]}`))
	}))
	defer srv.Close()

	store, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := testClient(srv, store)

	ctx := context.Background()
	if _, err := c.RecallsByVehicle(ctx, "HONDA", "CIVIC", 2020); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RecallsByVehicle(ctx, "HONDA", "CIVIC", 2020); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("second fetch should hit the cache, got %d upstream calls", got)
	}

	// A different vehicle is a different key.
	if _, err := c.RecallsByVehicle(ctx, "HONDA", "ACCORD", 2020); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("distinct vehicle should miss, got %d upstream calls", got)
	}
}

func TestResultsKeyCasing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Count": 1, "Results": [{"Make_Name": "HONDA"}]}`))
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	makes := c.Makes(context.Background())
	if len(makes) != 1 || makes[0] != "HONDA" {
		t.Fatalf("capitalized Results key not handled: %v", makes)
	}
}

func TestDecodeVINValidatesBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	_, err := c.DecodeVIN(context.Background(), "SHORT")
	if !errors.Is(err, domain.ErrInvalidVIN) {
		t.Fatalf("expected ErrInvalidVIN, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("short VIN must not reach the network")
	}
}

func TestDecodeVIN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Results": [{
			"Make": "HONDA", "Model": "Civic", "ModelYear": "2021",
			"ErrorCode": "0", "ErrorText": ""
		}]}`))
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	dec, err := c.DecodeVIN(context.Background(), " 1hgbh41jxmn109186 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.Vehicle{Make: "HONDA", Model: "Civic", Year: 2021, VIN: "1HGBH41JXMN109186"}
	if dec.Vehicle != want {
		t.Fatalf("got %+v, want %+v", dec.Vehicle, want)
	}
	if dec.Warning != "" {
		t.Fatalf("ErrorCode 0 should not warn: %q", dec.Warning)
	}
}

func TestDecodeVINWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Results": [{
			"Make": "HONDA", "Model": "Civic", "ModelYear": 2021,
			"ErrorCode": "6", "ErrorText": "Incomplete VIN"
		}]}`))
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	dec, err := c.DecodeVIN(context.Background(), "1HGBH41JXMN109186")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Warning != "6: Incomplete VIN" {
		t.Fatalf("got warning %q", dec.Warning)
	}
	if dec.Vehicle.Year != 2021 {
		t.Fatalf("numeric ModelYear not coerced: %d", dec.Vehicle.Year)
	}
}

func TestSafetyIssueByIDValidation(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	ctx := context.Background()

	if _, err := c.SafetyIssueByID(ctx, "123", "bogus"); !errors.Is(err, domain.ErrUnsupportedIssueType) {
		t.Fatalf("expected ErrUnsupportedIssueType, got %v", err)
	}
	if _, err := c.SafetyIssueByID(ctx, "", "complaints"); !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("invalid input must not reach the network")
	}
}

func TestRecallsByCampaignEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	rows, err := c.RecallsByCampaign(context.Background(), "  ")
	if err != nil || rows != nil {
		t.Fatalf("empty campaign should be (nil, nil), got %v %v", rows, err)
	}
	if calls.Load() != 0 {
		t.Fatal("empty campaign must not reach the network")
	}
}

func TestMetadataLookupsBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	if got := c.ModelsForMakeYear(context.Background(), "BMW", 2018); got != nil {
		t.Fatalf("failed lookup should be empty, got %v", got)
	}
	if got := c.ModelsForMake(context.Background(), "BMW"); got != nil {
		t.Fatalf("failed lookup should be empty, got %v", got)
	}
}

func TestRequestHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := testClient(srv, nil)
	if _, err := c.RecallsByVehicle(context.Background(), "HONDA", "CIVIC", 2020); err != nil {
		t.Fatal(err)
	}
}
