package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/ek-server/internal/adminapi"
	"github.com/park285/ek-server/pkg/ekdto"
)

// ekcheck is a smoke test against a running ek-server.
func main() {
	adminURL := os.Getenv("EK_ADMIN_URL")
	wsURL := os.Getenv("EK_WS_URL")
	nickname := os.Getenv("EK_NICKNAME")
	if nickname == "" {
		nickname = "ekcheck"
	}
	if adminURL == "" {
		log.Fatal("EK_ADMIN_URL is required")
	}

	client := adminapi.NewClient(adminURL, adminapi.WithTimeout(5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h, err := client.Health(ctx)
	if err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		log.Printf("/healthz ok: uptime=%s games=%d users=%d sessions=%d", h.Uptime, h.Games, h.Users, h.Sessions)
	}
	if games, err := client.Games(ctx); err != nil {
		log.Printf("/games error: %v", err)
	} else {
		for _, g := range games {
			fmt.Printf("game id=%s title=%q status=%s players=%d\n", g.ID, g.Title, g.Status, g.Players)
		}
	}

	if wsURL == "" {
		log.Println("EK_WS_URL not set; skipping WS check")
		return
	}

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	conn, _, err := websocket.Dial(cctx, wsURL, nil)
	if err != nil {
		log.Printf("WS dial error: %v", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	data, _ := json.Marshal(ekdto.ConnectRequest{Nickname: nickname})
	if err := wsjson.Write(cctx, conn, ekdto.Envelope{Event: ekdto.EventConnect, Data: data}); err != nil {
		log.Printf("WS write error: %v", err)
		return
	}

	// Observe for a short window
	for {
		var env ekdto.Envelope
		if err := wsjson.Read(cctx, conn, &env); err != nil {
			log.Printf("WS done: %v", err)
			return
		}
		fmt.Printf("WS event=%s data=%s\n", env.Event, env.Data)
	}
}
