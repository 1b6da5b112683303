package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/fragdrop/fragwatch/internal/adapters/notify"
)

func TestWebhookNotifier(t *testing.T) {
	Convey("Given a Discord-compatible webhook endpoint", t, func() {
		ctx := context.Background()

		Convey("When a notification is sent", func() {
			var payload struct {
				Embeds []struct {
					Title       string `json:"title"`
					Description string `json:"description"`
					URL         string `json:"url"`
					Color       int    `json:"color"`
				} `json:"embeds"`
			}
			var contentType string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				contentType = r.Header.Get("Content-Type")
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &payload)
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			n := notify.NewNotification(notify.KindRestock, "Back in stock: Aventus", "Price: $34.00", "https://shop.example/aventus")
			err := notify.NewWebhookNotifier(srv.URL).Send(ctx, n)

			Convey("Then the embed payload mirrors the notification", func() {
				So(err, ShouldBeNil)
				So(contentType, ShouldEqual, "application/json")
				So(len(payload.Embeds), ShouldEqual, 1)
				So(payload.Embeds[0].Title, ShouldEqual, "Back in stock: Aventus")
				So(payload.Embeds[0].Description, ShouldEqual, "Price: $34.00")
				So(payload.Embeds[0].URL, ShouldEqual, "https://shop.example/aventus")
				So(payload.Embeds[0].Color, ShouldNotEqual, 0)
			})
		})

		Convey("When the webhook rejects the request", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer srv.Close()

			err := notify.NewWebhookNotifier(srv.URL).Send(ctx, notify.TestNotification())

			Convey("Then a send error is returned", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "429")
			})
		})
	})
}

func TestPushoverNotifier(t *testing.T) {
	Convey("Given a Pushover-compatible endpoint", t, func() {
		ctx := context.Background()

		Convey("When a watchlisted notification is sent", func() {
			var form map[string][]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseForm()
				form = r.PostForm
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			n := notify.NewNotification(notify.KindRestock, "Back in stock: Aventus", "Price: $34.00", "https://shop.example/aventus")
			n.Watchlisted = true

			p := notify.NewPushoverNotifier("app-token", "user-key",
				notify.WithPushoverEndpoint(srv.URL))
			err := p.Send(ctx, n)

			Convey("Then the form carries credentials, content, and priority", func() {
				So(err, ShouldBeNil)
				So(form["token"], ShouldResemble, []string{"app-token"})
				So(form["user"], ShouldResemble, []string{"user-key"})
				So(form["title"], ShouldResemble, []string{"Back in stock: Aventus"})
				So(form["message"], ShouldResemble, []string{"Price: $34.00"})
				So(form["url"], ShouldResemble, []string{"https://shop.example/aventus"})
				So(form["priority"], ShouldResemble, []string{"1"})
			})
		})

		Convey("When a notification has no body", func() {
			var form map[string][]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseForm()
				form = r.PostForm
			}))
			defer srv.Close()

			n := notify.NewNotification(notify.KindTest, "only a title", "", "")
			p := notify.NewPushoverNotifier("t", "u", notify.WithPushoverEndpoint(srv.URL))

			Convey("Then the title doubles as the message", func() {
				So(p.Send(ctx, n), ShouldBeNil)
				So(form["message"], ShouldResemble, []string{"only a title"})
				So(form["priority"], ShouldBeNil)
			})
		})

		Convey("When the API rejects the request", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			}))
			defer srv.Close()

			p := notify.NewPushoverNotifier("t", "u", notify.WithPushoverEndpoint(srv.URL))
			err := p.Send(ctx, notify.TestNotification())

			Convey("Then a send error is returned", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "400")
			})
		})
	})
}
