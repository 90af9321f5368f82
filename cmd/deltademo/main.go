// DELTA Demo Server
//
// This server wires a sender PeerConnection instrumented with
// pkg/delta/interceptor into a loopback WebRTC session and serves a live
// stats dashboard showing the DELTA controller's advisory bitrate, fps,
// and FEC ratio as they respond to the real RTCP round trip.
package main

import (
	"fmt"
	"log"

	"github.com/wavry/delta/cmd/deltademo/server"
)

func main() {
	fmt.Println(`
DELTA Demo Server
=================
Open http://localhost:8080 to watch the controller's live readout.

Server ready on :8080`)

	cfg := server.Config{Addr: ":8080"}
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	addr, err := srv.Start()
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Printf("Listening on %s", addr)

	select {}
}
