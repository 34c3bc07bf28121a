package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
	"github.com/AnshRaj112/visitrace-backend/internal/services"
)

func TestLiveHandler_StreamsEvents(t *testing.T) {
	feed := services.NewLiveFeed(nil)
	srv := httptest.NewServer(NewLiveHandler(feed))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	event := models.RequestEvent{ID: uuid.New(), Host: "a.example.com", Timestamp: time.Now().UTC()}
	// the subscription is registered after the upgrade; retry until delivered
	deadline := time.Now().Add(2 * time.Second)
	got := make(chan models.RequestEvent, 1)
	go func() {
		var e models.RequestEvent
		if err := conn.ReadJSON(&e); err == nil {
			got <- e
		}
	}()
	for {
		feed.Deliver(event)
		select {
		case e := <-got:
			if e.ID != event.ID || e.Host != "a.example.com" {
				t.Fatalf("received %+v", e)
			}
			return
		case <-time.After(20 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("no event received")
		}
	}
}
