package steam_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/cheevo/internal/steam"
	. "github.com/smartystreets/goconvey/convey"
)

func newClient(t *testing.T, baseURL string, opts ...steam.Option) *steam.Client {
	t.Helper()
	c, err := steam.NewClient(steam.Config{
		APIKey:            "test-key",
		BaseURL:           baseURL,
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
		MaxRetries:        2,
	}, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClientConstruction(t *testing.T) {
	Convey("Given client construction", t, func() {
		Convey("When the API key is missing", func() {
			_, err := steam.NewClient(steam.Config{BaseURL: "http://example.com"})

			Convey("Then it should fail with the sentinel error", func() {
				So(err, ShouldEqual, steam.ErrMissingAPIKey)
			})
		})

		Convey("When the base URL is missing", func() {
			_, err := steam.NewClient(steam.Config{APIKey: "k"})

			Convey("Then it should fail with the sentinel error", func() {
				So(err, ShouldEqual, steam.ErrMissingBaseURL)
			})
		})
	})
}

func TestGetGameSchema(t *testing.T) {
	Convey("Given a game schema endpoint", t, func() {
		Convey("When the game has achievements", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// Assertions must stay out of handler goroutines; reject bad
				// requests instead so the client-side check fails loudly.
				if r.URL.Path != "/ISteamUserStats/GetSchemaForGame/v2/" ||
					r.URL.Query().Get("key") != "test-key" ||
					r.URL.Query().Get("appid") != "440" {
					http.Error(w, "bad request", http.StatusBadRequest)
					return
				}
				_, _ = w.Write([]byte(`{"game":{"gameName":"Test Game","availableGameStats":{"achievements":[
					{"name":"ACH_A","displayName":"First Blood","description":"Do the thing","hidden":0},
					{"name":"ACH_B","displayName":"Hidden One","description":"","hidden":1}
				]}}}`))
			}))
			defer srv.Close()

			client := newClient(t, srv.URL)
			schema, err := client.GetGameSchema(context.Background(), "440")

			Convey("Then it should return the parsed achievement list", func() {
				So(err, ShouldBeNil)
				So(schema, ShouldHaveLength, 2)
				So(schema[0].APIName, ShouldEqual, "ACH_A")
				So(schema[0].DisplayName, ShouldEqual, "First Blood")
				So(schema[0].Hidden, ShouldBeFalse)
				So(schema[1].Hidden, ShouldBeTrue)
			})
		})

		Convey("When the game has no achievement stats", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"game":{"gameName":"No Stats Game"}}`))
			}))
			defer srv.Close()

			client := newClient(t, srv.URL)
			_, err := client.GetGameSchema(context.Background(), "999")

			Convey("Then it should report the missing stats", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, steam.ErrNoAchievementStats)
			})
		})
	})
}

func TestGetPlayerAchievements(t *testing.T) {
	Convey("Given a player achievements endpoint", t, func() {
		Convey("When the profile is public", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("steamid") != "76561198000000001" {
					http.Error(w, "bad steamid", http.StatusBadRequest)
					return
				}
				_, _ = w.Write([]byte(`{"playerstats":{"success":true,"achievements":[
					{"apiname":"ACH_A","achieved":1,"unlocktime":1700000000},
					{"apiname":"ACH_B","achieved":0,"unlocktime":0}
				]}}`))
			}))
			defer srv.Close()

			client := newClient(t, srv.URL)
			records, err := client.GetPlayerAchievements(context.Background(), "76561198000000001", "440")

			Convey("Then it should return unlocked and locked records", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 2)
				So(records[0].Achieved, ShouldBeTrue)
				So(records[0].UnlockTime, ShouldEqual, 1700000000)
				So(records[1].Achieved, ShouldBeFalse)
				So(records[1].UnlockTime, ShouldEqual, 0)
			})
		})

		Convey("When the profile is private (payload)", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"playerstats":{"success":false,"error":"Profile is not public"}}`))
			}))
			defer srv.Close()

			client := newClient(t, srv.URL)
			_, err := client.GetPlayerAchievements(context.Background(), "76561198000000002", "440")

			Convey("Then it should surface ErrPrivateProfile", func() {
				So(err, ShouldWrap, steam.ErrPrivateProfile)
			})
		})

		Convey("When the profile is private (http 403)", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			}))
			defer srv.Close()

			client := newClient(t, srv.URL)
			_, err := client.GetPlayerAchievements(context.Background(), "76561198000000003", "440")

			Convey("Then it should surface ErrPrivateProfile", func() {
				So(err, ShouldWrap, steam.ErrPrivateProfile)
			})
		})
	})
}

func TestThrottlingRetry(t *testing.T) {
	Convey("Given a throttling API", t, func() {
		Convey("When the first response is 429 and the second succeeds", func() {
			var calls atomic.Int64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.Header().Set("Retry-After", "0")
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				_, _ = w.Write([]byte(`{"playerstats":{"success":true,"achievements":[]}}`))
			}))
			defer srv.Close()

			client := newClient(t, srv.URL, steam.WithRetryDelay(time.Millisecond))
			records, err := client.GetPlayerAchievements(context.Background(), "1", "440")

			Convey("Then the request is retried and succeeds", func() {
				So(err, ShouldBeNil)
				So(records, ShouldBeEmpty)
				So(calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When every response is 429", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer srv.Close()

			client := newClient(t, srv.URL, steam.WithRetryDelay(time.Millisecond))
			_, err := client.GetPlayerAchievements(context.Background(), "1", "440")

			Convey("Then the client gives up with ErrThrottled", func() {
				So(err, ShouldWrap, steam.ErrThrottled)
			})
		})

		Convey("When the API returns an unexpected status", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			client := newClient(t, srv.URL)
			_, err := client.GetPlayerAchievements(context.Background(), "1", "440")

			Convey("Then it propagates rather than being swallowed", func() {
				So(err, ShouldWrap, steam.ErrUnexpectedStatus)
			})
		})
	})
}

func TestListAchievementUnlockers(t *testing.T) {
	Convey("Given a paginated unlocker listing", t, func() {
		pages := map[string]string{
			"":    `{"response":{"steamids":["1","2","3"],"next_cursor":"abc"}}`,
			"abc": `{"response":{"steamids":["4","5"],"next_cursor":""}}`,
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("achievementname") != "ACH_A" {
				http.Error(w, "bad achievement", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(pages[r.URL.Query().Get("cursor")]))
		}))
		defer srv.Close()

		client := newClient(t, srv.URL)

		Convey("When walking both pages", func() {
			first, cursor, err := client.ListAchievementUnlockers(context.Background(), "440", "ACH_A", "")
			So(err, ShouldBeNil)
			second, next, err := client.ListAchievementUnlockers(context.Background(), "440", "ACH_A", cursor)
			So(err, ShouldBeNil)

			Convey("Then the cursor threads through and terminates", func() {
				So(first, ShouldResemble, []string{"1", "2", "3"})
				So(cursor, ShouldEqual, "abc")
				So(second, ShouldResemble, []string{"4", "5"})
				So(next, ShouldEqual, "")
			})
		})
	})
}
