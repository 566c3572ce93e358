package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/pacer/internal/adapters/http/api"
	"github.com/okian/pacer/internal/adapters/repository"
	service "github.com/okian/pacer/internal/app"
	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/internal/domain/types"
	"github.com/okian/pacer/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var clock = time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	handler  http.Handler
	svc      *service.Service
	store    repository.Store
	upcoming model.Event
	finished model.Event
	route    model.Route
}

func newFixture() fixture {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := service.New(
		service.WithStore(store),
		service.WithClock(func() time.Time { return clock }),
		service.WithMaxTopPerformersLimit(20),
	)
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	_ = store.CreateJogger(ctx, model.Jogger{Email: "ana@example.com", Name: "Ana"})
	_ = store.CreateJogger(ctx, model.Jogger{Email: "ben@example.com", Name: "Ben"})
	route := &model.Route{Name: "Riverside", DistanceKm: 5, AvgPace: 6.5}
	_ = store.CreateRoute(ctx, route)
	upcoming := &model.Event{Name: "Harbour 5k", Date: clock.Add(48 * time.Hour), MaxParticipants: 1}
	finished := &model.Event{Name: "Spring 10k", Date: clock.Add(-48 * time.Hour), MaxParticipants: 5}
	_ = store.CreateEvent(ctx, upcoming)
	_ = store.CreateEvent(ctx, finished)

	server := api.NewServer(svc, svc, api.WithDefaultTopPerformersLimit(5))
	return fixture{
		handler:  server.Router(ctx),
		svc:      svc,
		store:    store,
		upcoming: *upcoming,
		finished: *finished,
		route:    *route,
	}
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer_Operational(t *testing.T) {
	Convey("Given the API router", t, func() {
		f := newFixture()
		defer f.svc.Stop()

		Convey("Then /healthz reports ok", func() {
			w := f.do(http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then /stats returns the service stats", func() {
			w := f.do(http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats["events"], ShouldEqual, 2.0)
		})

		Convey("Then /metrics serves the Prometheus registry", func() {
			f.do(http.MethodGet, "/healthz", "")
			w := f.do(http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("Then every response carries a request id", func() {
			w := f.do(http.MethodGet, "/healthz", "")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("Then a valid incoming request id is echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "6f1c1d3e-8a57-4a3b-9a0e-3c2f4e5d6a7b")
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "6f1c1d3e-8a57-4a3b-9a0e-3c2f4e5d6a7b")
		})

		Convey("Then unknown routes return a JSON 404", func() {
			w := f.do(http.MethodGet, "/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")
		})
	})
}

func TestServer_Registrations(t *testing.T) {
	Convey("Given an upcoming event with one seat", t, func() {
		f := newFixture()
		defer f.svc.Stop()
		regPath := fmt.Sprintf("/events/%d/registrations", f.upcoming.ID)

		Convey("When Ana registers", func() {
			w := f.do(http.MethodPost, regPath, `{"jogger_email":"ana@example.com"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			Convey("Then registering again conflicts", func() {
				w := f.do(http.MethodPost, regPath, `{"jogger_email":"ana@example.com"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "already_registered")
			})

			Convey("Then Ben finds it full", func() {
				w := f.do(http.MethodPost, regPath, `{"jogger_email":"ben@example.com"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "event_full")

				w = f.do(http.MethodGet, fmt.Sprintf("/events/%d/availability?jogger_email=ben@example.com", f.upcoming.ID), "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var a types.Availability
				So(json.Unmarshal(w.Body.Bytes(), &a), ShouldBeNil)
				So(a.Full, ShouldBeTrue)
				So(a.IsMember, ShouldBeFalse)
				So(a.CanRegister, ShouldBeFalse)
			})

			Convey("Then unregistering frees the seat once", func() {
				w := f.do(http.MethodDelete, regPath+"/ana@example.com", "")
				So(w.Code, ShouldEqual, http.StatusNoContent)
				w = f.do(http.MethodDelete, regPath+"/ana@example.com", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_registered")
			})
		})

		Convey("When registering for a finished event", func() {
			path := fmt.Sprintf("/events/%d/registrations", f.finished.ID)
			w := f.do(http.MethodPost, path, `{"jogger_email":"ana@example.com"}`)

			Convey("Then it is unprocessable, but organizers may enroll", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(errorCode(w), ShouldEqual, "event_in_past")
				w = f.do(http.MethodPost, "/organizer"+path, `{"jogger_email":"ana@example.com"}`)
				So(w.Code, ShouldEqual, http.StatusCreated)
			})
		})

		Convey("When the request is malformed", func() {
			Convey("Then bad emails, bodies and ids are rejected", func() {
				So(f.do(http.MethodPost, regPath, `{"jogger_email":"nope"}`).Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodPost, regPath, `{`).Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodPost, regPath, `{"jogger_email":"ana@example.com","x":1}`).Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodPost, "/events/abc/registrations", `{"jogger_email":"ana@example.com"}`).Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the event or jogger is unknown", func() {
			Convey("Then 404 is returned", func() {
				So(f.do(http.MethodPost, "/events/999/registrations", `{"jogger_email":"ana@example.com"}`).Code, ShouldEqual, http.StatusNotFound)
				So(f.do(http.MethodPost, regPath, `{"jogger_email":"ghost@example.com"}`).Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestServer_Sessions(t *testing.T) {
	Convey("Given a seeded API", t, func() {
		f := newFixture()
		defer f.svc.Stop()

		body := fmt.Sprintf(`{"jogger_email":"ana@example.com","start":"2024-09-01T09:00:00Z","end":"2024-09-01T09:25:00Z","distance_km":5,"route_id":%d,"event_id":%d}`,
			f.route.ID, f.finished.ID)
		w := f.do(http.MethodPost, "/sessions", body)
		So(w.Code, ShouldEqual, http.StatusCreated)
		var sess types.Session
		So(json.Unmarshal(w.Body.Bytes(), &sess), ShouldBeNil)
		So(sess.ID, ShouldBeGreaterThan, 0)

		Convey("When Ana asks for her report", func() {
			w := f.do(http.MethodGet, fmt.Sprintf("/sessions/%d/report?jogger_email=ana@example.com", sess.ID), "")

			Convey("Then it is rated on pace", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var rep types.SessionReport
				So(json.Unmarshal(w.Body.Bytes(), &rep), ShouldBeNil)
				So(rep.RouteName, ShouldEqual, "Riverside")
				So(rep.RatingLabel, ShouldEqual, "on_pace")
				So(rep.Calories, ShouldEqual, 350)
				So(rep.Duration, ShouldEqual, "25m 0s")
			})
		})

		Convey("When Ben touches Ana's session", func() {
			Convey("Then he is forbidden", func() {
				w := f.do(http.MethodGet, fmt.Sprintf("/sessions/%d/report?jogger_email=ben@example.com", sess.ID), "")
				So(w.Code, ShouldEqual, http.StatusForbidden)
				w = f.do(http.MethodDelete, fmt.Sprintf("/sessions/%d?jogger_email=ben@example.com", sess.ID), "")
				So(w.Code, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("When updating with end before start", func() {
			w := f.do(http.MethodPut, fmt.Sprintf("/sessions/%d", sess.ID),
				`{"jogger_email":"ana@example.com","start":"2024-09-01T09:00:00Z","end":"2024-09-01T08:00:00Z","distance_km":5}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When logging a negative distance", func() {
			w := f.do(http.MethodPost, "/sessions",
				`{"jogger_email":"ana@example.com","start":"2024-09-01T09:00:00Z","end":"2024-09-01T09:25:00Z","distance_km":-1}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When Ana unlinks and deletes it", func() {
			w := f.do(http.MethodDelete, fmt.Sprintf("/events/%d/sessions/%d?jogger_email=ana@example.com", f.finished.ID, sess.ID), "")
			So(w.Code, ShouldEqual, http.StatusNoContent)
			w = f.do(http.MethodPut, fmt.Sprintf("/events/%d/sessions/%d", f.finished.ID, sess.ID), `{"jogger_email":"ana@example.com"}`)
			So(w.Code, ShouldEqual, http.StatusNoContent)
			w = f.do(http.MethodDelete, fmt.Sprintf("/sessions/%d?jogger_email=ana@example.com", sess.ID), "")
			So(w.Code, ShouldEqual, http.StatusNoContent)

			Convey("Then the report is gone", func() {
				w := f.do(http.MethodGet, fmt.Sprintf("/sessions/%d/report?jogger_email=ana@example.com", sess.ID), "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestServer_Leaderboard(t *testing.T) {
	Convey("Given sessions on a finished event", t, func() {
		f := newFixture()
		defer f.svc.Stop()
		ctx := context.Background()
		for _, s := range []struct {
			email string
			km    float64
		}{{"ana@example.com", 5}, {"ben@example.com", 5}, {"ben@example.com", 3}} {
			_, err := f.svc.LogSession(ctx, model.Session{
				JoggerEmail: s.email, Start: clock, End: clock.Add(30 * time.Minute), DistanceKm: s.km,
			}, f.finished.ID)
			So(err, ShouldBeNil)
		}

		Convey("When fetching the leaderboard", func() {
			w := f.do(http.MethodGet, fmt.Sprintf("/events/%d/leaderboard", f.finished.ID), "")

			Convey("Then ties share a rank", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var lb types.Leaderboard
				So(json.Unmarshal(w.Body.Bytes(), &lb), ShouldBeNil)
				So(lb.Entries, ShouldHaveLength, 3)
				So([]int{lb.Entries[0].Rank, lb.Entries[1].Rank, lb.Entries[2].Rank}, ShouldResemble, []int{1, 1, 3})
			})
		})

		Convey("When the event has no sessions", func() {
			w := f.do(http.MethodGet, fmt.Sprintf("/events/%d/leaderboard", f.upcoming.ID), "")

			Convey("Then entries is an empty array", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"entries":[]`)
			})
		})

		Convey("When asking for standings", func() {
			Convey("Then Ben's best entry is returned and strangers get 404", func() {
				w := f.do(http.MethodGet, fmt.Sprintf("/events/%d/leaderboard/ben@example.com", f.finished.ID), "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var e types.LeaderboardEntry
				So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
				So(e.DistanceKm, ShouldEqual, 5.0)

				w = f.do(http.MethodGet, fmt.Sprintf("/events/%d/leaderboard/ana@example.com", f.upcoming.ID), "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_ranked")
			})
		})

		Convey("When requesting top performers", func() {
			Convey("Then totals are aggregated", func() {
				w := f.do(http.MethodGet, fmt.Sprintf("/reports/top-performers?event_id=%d,%d", f.finished.ID, f.upcoming.ID), "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var top []types.TopPerformer
				So(json.Unmarshal(w.Body.Bytes(), &top), ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].JoggerEmail, ShouldEqual, "ben@example.com")
				So(top[0].TotalDistanceKm, ShouldEqual, 8.0)
			})

			Convey("Then invalid requests are rejected", func() {
				id := f.finished.ID
				So(f.do(http.MethodGet, fmt.Sprintf("/reports/top-performers?event_id=%d&limit=0", id), "").Code, ShouldEqual, http.StatusBadRequest)
				w := f.do(http.MethodGet, fmt.Sprintf("/reports/top-performers?event_id=%d&limit=21", id), "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "limit_exceeded")
				So(f.do(http.MethodGet, "/reports/top-performers", "").Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodGet, "/reports/top-performers?event_id=x", "").Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodGet, "/reports/top-performers?event_id=999", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestServer_Reviews(t *testing.T) {
	Convey("Given a finished event Ana attended", t, func() {
		f := newFixture()
		defer f.svc.Stop()
		So(f.svc.Enroll(context.Background(), f.finished.ID, "ana@example.com"), ShouldBeNil)
		path := fmt.Sprintf("/events/%d/reviews", f.finished.ID)

		Convey("When Ana reviews it", func() {
			w := f.do(http.MethodPost, path, `{"jogger_email":"ana@example.com","rating":4,"comment":"flat and fast"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			var rv types.Review
			So(json.Unmarshal(w.Body.Bytes(), &rv), ShouldBeNil)

			Convey("Then the list carries the summary", func() {
				w := f.do(http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var list types.Reviews
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(list.Count, ShouldEqual, 1)
				So(list.Average, ShouldEqual, 4.0)
			})

			Convey("Then only Ana can delete it", func() {
				w := f.do(http.MethodDelete, fmt.Sprintf("%s/%d?jogger_email=ben@example.com", path, rv.ID), "")
				So(w.Code, ShouldEqual, http.StatusForbidden)
				w = f.do(http.MethodDelete, fmt.Sprintf("%s/%d?jogger_email=ana@example.com", path, rv.ID), "")
				So(w.Code, ShouldEqual, http.StatusNoContent)
			})
		})

		Convey("When Ben, not a participant, reviews it", func() {
			w := f.do(http.MethodPost, path, `{"jogger_email":"ben@example.com","rating":4}`)

			Convey("Then he is forbidden", func() {
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(errorCode(w), ShouldEqual, "not_participant")
			})
		})

		Convey("When a route review has an out of range rating", func() {
			w := f.do(http.MethodPost, fmt.Sprintf("/routes/%d/reviews", f.route.ID), `{"jogger_email":"ben@example.com","rating":0}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When listing reviews of an unknown route", func() {
			w := f.do(http.MethodGet, "/routes/999/reviews", "")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestServer_SessionList(t *testing.T) {
	Convey("Given a seeded API", t, func() {
		f := newFixture()
		defer f.svc.Stop()

		Convey("When Ana has no sessions", func() {
			w := f.do(http.MethodGet, "/sessions?jogger_email=ana@example.com", "")

			Convey("Then an empty array is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When Ana logs a session", func() {
			w := f.do(http.MethodPost, "/sessions",
				`{"jogger_email":"ana@example.com","start":"2024-09-01T09:00:00Z","end":"2024-09-01T09:25:00Z","distance_km":5}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			Convey("Then it is listed for her and not for Ben", func() {
				w := f.do(http.MethodGet, "/sessions?jogger_email=ana@example.com", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var sessions []types.Session
				So(json.Unmarshal(w.Body.Bytes(), &sessions), ShouldBeNil)
				So(sessions, ShouldHaveLength, 1)
				So(sessions[0].DistanceKm, ShouldEqual, 5.0)

				w = f.do(http.MethodGet, "/sessions?jogger_email=ben@example.com", "")
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When the jogger is unknown or the email is missing", func() {
			Convey("Then 404 and 400 are returned", func() {
				w := f.do(http.MethodGet, "/sessions?jogger_email=ghost@example.com", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
				So(f.do(http.MethodGet, "/sessions", "").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestServer_Catalog(t *testing.T) {
	Convey("Given a seeded API", t, func() {
		f := newFixture()
		defer f.svc.Stop()

		Convey("When an admin adds a route and an organizer schedules an event on it", func() {
			w := f.do(http.MethodPost, "/admin/routes", `{"name":"Canal loop","distance_km":8,"avg_pace":6}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			var route types.Route
			So(json.Unmarshal(w.Body.Bytes(), &route), ShouldBeNil)
			So(route.ID, ShouldBeGreaterThan, 0)

			w = f.do(http.MethodPost, "/organizer/events",
				fmt.Sprintf(`{"name":"Canal 8k","date":"2024-09-10T08:00:00Z","max_participants":3,"route_id":%d}`, route.ID))
			So(w.Code, ShouldEqual, http.StatusCreated)
			var ev types.Event
			So(json.Unmarshal(w.Body.Bytes(), &ev), ShouldBeNil)
			So(ev.MaxParticipants, ShouldEqual, 3)
			So(ev.RouteID, ShouldEqual, route.ID)

			Convey("Then a new jogger can sign up and register for it", func() {
				w := f.do(http.MethodPost, "/joggers", `{"email":"cleo@example.com","name":"Cleo"}`)
				So(w.Code, ShouldEqual, http.StatusCreated)
				regPath := fmt.Sprintf("/events/%d/registrations", ev.ID)
				So(f.do(http.MethodPost, regPath, `{"jogger_email":"cleo@example.com"}`).Code, ShouldEqual, http.StatusCreated)
				So(f.do(http.MethodPost, regPath, `{"jogger_email":"ana@example.com"}`).Code, ShouldEqual, http.StatusCreated)

				Convey("And the organizer sees both registrations", func() {
					w := f.do(http.MethodGet, fmt.Sprintf("/organizer/events/%d/registrations", ev.ID), "")
					So(w.Code, ShouldEqual, http.StatusOK)
					var regs []types.Registration
					So(json.Unmarshal(w.Body.Bytes(), &regs), ShouldBeNil)
					So(regs, ShouldHaveLength, 2)
					So(regs[0].JoggerEmail, ShouldEqual, "ana@example.com")
					So(regs[1].JoggerEmail, ShouldEqual, "cleo@example.com")
				})
			})
		})

		Convey("When an event has no registrations", func() {
			w := f.do(http.MethodGet, fmt.Sprintf("/organizer/events/%d/registrations", f.upcoming.ID), "")

			Convey("Then an empty array is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When creation input is invalid", func() {
			Convey("Then it is rejected with the matching status", func() {
				So(f.do(http.MethodPost, "/joggers", `{"email":"nope","name":"X"}`).Code, ShouldEqual, http.StatusBadRequest)
				w := f.do(http.MethodPost, "/joggers", `{"email":"ana@example.com","name":"Ana again"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "conflict")
				So(f.do(http.MethodPost, "/admin/routes", `{"name":"Hill","avg_pace":-1}`).Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodPost, "/organizer/events", `{"name":"Tiny","date":"2024-09-10T08:00:00Z","max_participants":0}`).Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodPost, "/organizer/events", `{"name":"Lost","date":"2024-09-10T08:00:00Z","max_participants":1,"route_id":999}`).Code, ShouldEqual, http.StatusNotFound)
				So(f.do(http.MethodGet, "/organizer/events/999/registrations", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
