package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chronoverse/chronoverse/internal/adapters/http/api"
	service "github.com/chronoverse/chronoverse/internal/app"
	"github.com/chronoverse/chronoverse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies records the last query and returns canned results.
type mockDependencies struct {
	lastQuery   service.Query
	lastCluster string
	lastStart   int64
	lastEnd     int64
	timelineErr error
	dataErr     error
	clusterErr  error
}

func (m *mockDependencies) DefaultQuery() service.Query {
	return service.Query{StartYear: -5000, EndYear: 2025, EnableClustering: true, EnableSpans: true}
}

func (m *mockDependencies) Timeline(_ context.Context, q service.Query) (types.Timeline, error) {
	m.lastQuery = q
	if m.timelineErr != nil {
		return types.Timeline{}, m.timelineErr
	}
	return types.Timeline{
		Window: types.Window{StartYear: q.StartYear, EndYear: q.EndYear},
		Items:  []types.DisplayItem{{Kind: types.KindPoint, ID: "a", Category: "war", Year: 10}},
	}, nil
}

func (m *mockDependencies) Data(_ context.Context, start, end int64) ([]types.Event, error) {
	m.lastStart, m.lastEnd = start, end
	if m.dataErr != nil {
		return nil, m.dataErr
	}
	return []types.Event{{ID: "a", Title: "A"}}, nil
}

func (m *mockDependencies) ExpandCluster(_ context.Context, id string, start, end int64) (types.Cluster, error) {
	m.lastCluster, m.lastStart, m.lastEnd = id, start, end
	if m.clusterErr != nil {
		return types.Cluster{}, m.clusterErr
	}
	return types.Cluster{ID: id, MemberCount: 2, Members: []types.ClusterMember{{ID: "x"}, {ID: "y"}}}, nil
}

func (m *mockDependencies) Tiers() []types.TierInfo {
	return []types.TierInfo{{ID: 0}, {ID: 1}}
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats(context.Context) map[string]any {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}})
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then health reports ok", func() {
			w := get(mux, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then stats come from the provider with uptime", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["started"], ShouldEqual, true)
			So(body, ShouldContainKey, "uptime_seconds")
		})

		Convey("Then readiness follows the started flag", func() {
			w := get(mux, "/readyz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ready"`)
		})

		Convey("Then metrics are exposed in the Prometheus format", func() {
			_ = get(mux, "/api/tiers")
			w := get(mux, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "chronoverse_engine_http_requests_total")
		})

		Convey("Then tiers are listed", func() {
			w := get(mux, "/api/tiers")
			So(w.Code, ShouldEqual, http.StatusOK)
			var tiers []types.TierInfo
			So(json.Unmarshal(w.Body.Bytes(), &tiers), ShouldBeNil)
			So(len(tiers), ShouldEqual, 2)
		})

		Convey("Then unknown paths are not found", func() {
			So(get(mux, "/unknown").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then non-GET methods are not found", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/timeline", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRequestID(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("When the caller sends no request id", func() {
			w := get(mux, "/healthz")

			Convey("Then one is generated", func() {
				So(len(w.Header().Get(api.RequestIDHeader)), ShouldEqual, 36)
			})
		})

		Convey("When the caller sends a request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "req-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is echoed", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "req-123")
			})
		})

		Convey("When a handler reads the context", func() {
			var seen string
			h := api.RequestIDMiddleware(func(_ http.ResponseWriter, r *http.Request) {
				seen = api.RequestID(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "ctx-id")
			h(httptest.NewRecorder(), req)

			Convey("Then the id is available", func() {
				So(seen, ShouldEqual, "ctx-id")
			})
		})
	})
}

func TestTimelineHandler(t *testing.T) {
	Convey("Given a timeline handler", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When no parameters are given", func() {
			w := get(mux, "/api/timeline")

			Convey("Then the defaults are used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery, ShouldResemble, deps.DefaultQuery())
			})
		})

		Convey("When every parameter is given", func() {
			w := get(mux, "/api/timeline?start_year=-10000&end_year=2025&clustering=false&spans=0")

			Convey("Then they override the defaults", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery, ShouldResemble, service.Query{StartYear: -10000, EndYear: 2025})

				var tl types.Timeline
				So(json.Unmarshal(w.Body.Bytes(), &tl), ShouldBeNil)
				So(tl.Window.StartYear, ShouldEqual, -10000)
				So(tl.Items[0].ID, ShouldEqual, "a")
			})
		})

		Convey("When a year is not an integer", func() {
			w := get(mux, "/api/timeline?start_year=abc")

			Convey("Then 400 is returned with a JSON error", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "bad_request")
				So(body["message"], ShouldContainSubstring, "start_year")
			})
		})

		Convey("When a toggle is not a boolean", func() {
			So(get(mux, "/api/timeline?spans=maybe").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the window is too wide", func() {
			deps.timelineErr = fmt.Errorf("%w: too wide", service.ErrInvalidWindow)
			w := get(mux, "/api/timeline")

			Convey("Then 400 invalid_window is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "invalid_window")
			})
		})

		Convey("When the store fails", func() {
			deps.timelineErr = errors.New("disk on fire")
			w := get(mux, "/api/timeline")

			Convey("Then 500 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w)["code"], ShouldEqual, "internal_error")
			})
		})

		Convey("When the service is stopped", func() {
			deps.timelineErr = service.ErrNotStarted
			So(get(mux, "/api/timeline").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestDataHandler(t *testing.T) {
	Convey("Given a data handler", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When requesting a window", func() {
			w := get(mux, "/api/data?start_year=0&end_year=100")

			Convey("Then the raw events are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastStart, ShouldEqual, 0)
				So(deps.lastEnd, ShouldEqual, 100)
				So(w.Body.String(), ShouldContainSubstring, `"events":[{"id":"a"`)
			})
		})

		Convey("When the store fails", func() {
			deps.dataErr = errors.New("boom")
			So(get(mux, "/api/data").Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestClusterHandler(t *testing.T) {
	Convey("Given a cluster handler", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When expanding a cluster", func() {
			w := get(mux, "/api/clusters/cluster_1_war_Europe?start_year=0&end_year=10000")

			Convey("Then the members are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastCluster, ShouldEqual, "cluster_1_war_Europe")
				So(deps.lastEnd, ShouldEqual, 10000)

				var c types.Cluster
				So(json.Unmarshal(w.Body.Bytes(), &c), ShouldBeNil)
				So(c.MemberCount, ShouldEqual, 2)
			})
		})

		Convey("When the id carries escaped parts", func() {
			w := get(mux, "/api/clusters/cluster_1_war%255Fnaval_North%2520America?start_year=0&end_year=10000")

			Convey("Then the handler passes the decoded id", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastCluster, ShouldEqual, "cluster_1_war%5Fnaval_North%20America")
			})
		})

		Convey("When the window is missing", func() {
			So(get(mux, "/api/clusters/cluster_1_war_Europe").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the id is missing", func() {
			So(get(mux, "/api/clusters/?start_year=0&end_year=1").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the cluster does not exist", func() {
			deps.clusterErr = fmt.Errorf("%w: cluster_9", service.ErrClusterNotFound)
			w := get(mux, "/api/clusters/cluster_9?start_year=0&end_year=10000")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w)["code"], ShouldEqual, "not_found")
			})
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("bad digit")

		Convey("Then WrapKind matches both the kind and the cause", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: bad digit")
		})

		Convey("Then NewKind carries only the kind", func() {
			err := api.NewKind("api.op", api.ErrNotFound)
			So(errors.Is(err, api.ErrNotFound), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: not found")
		})

		Convey("Then Wrap carries only the cause", func() {
			err := api.Wrap("api.op", cause)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeFalse)

			var opErr *api.OpError
			So(errors.As(err, &opErr), ShouldBeTrue)
			So(opErr.Op, ShouldEqual, "api.op")
		})
	})
}

func TestStatusHandler(t *testing.T) {
	Convey("Given a service that has not started", t, func() {
		stats := &mockStatsProvider{stats: map[string]any{"started": false}}
		mux := http.NewServeMux()
		api.NewServer(&mockDependencies{}, stats).Register(context.Background(), mux)

		Convey("Then liveness still answers", func() {
			So(get(mux, "/healthz").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then readiness reports 503", func() {
			w := get(mux, "/readyz")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, `"status":"starting"`)
		})

		Convey("Then stats do not modify the provider's map", func() {
			So(get(mux, "/stats").Code, ShouldEqual, http.StatusOK)
			So(stats.stats, ShouldNotContainKey, "uptime_seconds")
		})
	})

	Convey("Given a provider without stats", t, func() {
		mux := http.NewServeMux()
		api.NewServer(&mockDependencies{}, &mockStatsProvider{}).Register(context.Background(), mux)

		Convey("Then stats still carry uptime and readiness is 503", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"uptime_seconds"`)
			So(get(mux, "/readyz").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}
