// Command event-tail connects to a running server's websocket endpoint and
// prints the session's event stream as it happens. Useful when debugging a
// live game without a full client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "server host:port")
	session := flag.String("session", "", "session id to follow (required)")
	flag.Parse()

	if *session == "" {
		flag.Usage()
		os.Exit(2)
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws", RawQuery: "session=" + url.QueryEscape(*session)}
	log.Printf("connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}
			var ev struct {
				Type      string         `json:"type"`
				PlayerID  string         `json:"playerId"`
				Payload   map[string]any `json:"payload"`
				Timestamp string         `json:"timestamp"`
			}
			if err := json.Unmarshal(msg, &ev); err != nil {
				fmt.Printf("%s\n", msg)
				continue
			}
			payload, _ := json.Marshal(ev.Payload)
			fmt.Printf("%s  %-20s player=%s  %s\n", ev.Timestamp, ev.Type, ev.PlayerID, payload)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
	case <-interrupt:
		log.Println("closing")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		<-done
	}
}
