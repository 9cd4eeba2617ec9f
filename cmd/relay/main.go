package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jun/gophboard/internal/relay"
)

func main() {
	addr := os.Getenv("RELAY_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	hub := relay.NewHub()
	http.HandleFunc("/ws", hub.ServeWS)

	fmt.Printf("Starting transform relay on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
