package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/a2a-go/pkg/a2a"
)

func TestNewClient(t *testing.T) {
	Convey("Given a URL", t, func() {
		url := "http://example.com/events"

		Convey("When creating a new client", func() {
			client := NewClient(url)

			Convey("It should initialize correctly", func() {
				So(client.URL, ShouldEqual, url)
				So(client.Headers, ShouldNotBeNil)
				So(client.Metrics, ShouldNotBeNil)
				So(client.MaxReconnectAttempts, ShouldEqual, DefaultMaxReconnectAttempts)
			})
		})
	})
}

func TestSubscribeReceivesDecodedEvent(t *testing.T) {
	Convey("Given an SSE server emitting one task_status_update event", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("id: 1\nevent: task_status_update\ndata: {\"state\":\"working\"}\n\n"))
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}))
		defer server.Close()

		client := NewClient(server.URL)

		Convey("When subscribing", func() {
			events := make(chan a2a.Event, 1)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			go func() {
				_ = client.Subscribe(ctx, "", func(e a2a.Event) {
					select {
					case events <- e:
					default:
					}
				})
			}()

			Convey("It should decode the event type", func() {
				select {
				case e := <-events:
					So(string(e.Type), ShouldEqual, "task_status_update")
				case <-time.After(2 * time.Second):
					t.Fatal("timeout waiting for event")
				}
			})
		})
	})
}

func TestSubscribeGivesUpAfterMaxReconnectAttempts(t *testing.T) {
	Convey("Given a server that always refuses the connection", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(server.URL)
		client.MaxReconnectAttempts = 2
		client.ReconnectDelay = 10 * time.Millisecond

		Convey("When subscribing", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := client.Subscribe(ctx, "", func(a2a.Event) {})

			Convey("It should return an error instead of retrying forever", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
