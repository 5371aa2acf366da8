package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/level114/warden/internal/adapters/http/api"
	"github.com/level114/warden/internal/adapters/repository"
	"github.com/level114/warden/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeStore serves canned registry entries.
type fakeStore struct {
	entries []api.Entry
}

func (f *fakeStore) TopN(ctx context.Context, n int) ([]api.Entry, error) {
	if n > len(f.entries) {
		n = len(f.entries)
	}
	return f.entries[:n], nil
}

func (f *fakeStore) Rank(ctx context.Context, serverID string) (api.Entry, error) {
	for _, e := range f.entries {
		if e.ServerID == serverID {
			return e, nil
		}
	}
	return api.Entry{}, repository.ErrNotFound
}

func (f *fakeStore) Count(ctx context.Context) int {
	return len(f.entries)
}

type fakeStats struct{}

func (fakeStats) Stats() map[string]interface{} {
	return map[string]interface{}{"cycles": 3, "servers": 2}
}

func newTestServer() *httptest.Server {
	store := &fakeStore{entries: []api.Entry{
		{Rank: 1, ServerID: "srv-a", Score: 900, Classification: model.ClassExcellent, UpdatedAt: time.Now()},
		{Rank: 2, ServerID: "srv-b", Score: 400, Classification: model.ClassAverage, UpdatedAt: time.Now()},
	}}
	mux := http.NewServeMux()
	api.NewServer(store, fakeStats{}, api.WithMaxListLimit(100)).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	Convey("Given the operator API", t, func() {
		var body map[string]string
		status := getJSON(t, srv.URL+"/healthz", &body)

		Convey("Then healthz should report ok", func() {
			So(status, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")
		})
	})
}

func TestScoresList(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	Convey("Given ranked servers", t, func() {
		Convey("When listing with a limit", func() {
			var entries []api.Entry
			status := getJSON(t, srv.URL+"/api/scores?limit=1", &entries)

			So(status, ShouldEqual, http.StatusOK)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].ServerID, ShouldEqual, "srv-a")
			So(entries[0].Score, ShouldEqual, 900)
		})

		Convey("When listing without a limit", func() {
			var entries []api.Entry
			status := getJSON(t, srv.URL+"/api/scores", &entries)

			So(status, ShouldEqual, http.StatusOK)
			So(entries, ShouldHaveLength, 2)
		})

		Convey("When the limit is malformed", func() {
			So(getJSON(t, srv.URL+"/api/scores?limit=zero", nil), ShouldEqual, http.StatusBadRequest)
			So(getJSON(t, srv.URL+"/api/scores?limit=0", nil), ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit exceeds the maximum", func() {
			So(getJSON(t, srv.URL+"/api/scores?limit=10000", nil), ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestScoreLookup(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	Convey("Given a known server", t, func() {
		var entry api.Entry
		status := getJSON(t, srv.URL+"/api/scores/srv-b", &entry)

		Convey("Then the lookup should return its row", func() {
			So(status, ShouldEqual, http.StatusOK)
			So(entry.ServerID, ShouldEqual, "srv-b")
			So(entry.Rank, ShouldEqual, 2)
			So(entry.Classification, ShouldEqual, model.ClassAverage)
		})
	})

	Convey("Given an unknown server", t, func() {
		So(getJSON(t, srv.URL+"/api/scores/missing", nil), ShouldEqual, http.StatusNotFound)
	})

	Convey("Given a malformed path", t, func() {
		So(getJSON(t, srv.URL+"/api/scores/a/b", nil), ShouldEqual, http.StatusBadRequest)
	})
}

func TestStats(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	Convey("Given the stats endpoint", t, func() {
		var stats map[string]interface{}
		status := getJSON(t, srv.URL+"/api/stats", &stats)

		So(status, ShouldEqual, http.StatusOK)
		So(stats["cycles"], ShouldEqual, float64(3))
		So(stats["servers"], ShouldEqual, float64(2))
	})
}
