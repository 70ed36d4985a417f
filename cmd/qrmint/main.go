// cmd/qrmint/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"punchclock_backend/internal/punch"
)

// qrmint stands in for a device display: it prints a freshly signed payload
// ready to be rendered as a QR code or pasted into a punch request.
func main() {
	deviceID := flag.String("device", "", "device id")
	secret := flag.String("secret", "", "device secret")
	every := flag.Duration("every", 0, "keep minting at this interval")
	flag.Parse()

	if *deviceID == "" || *secret == "" {
		log.Fatal("-device and -secret are required")
	}

	mint := func() {
		raw, err := punch.EncodePayload(*deviceID, *secret, time.Now())
		if err != nil {
			log.Fatalf("mint: %v", err)
		}
		fmt.Println(raw)
	}

	mint()
	if *every <= 0 {
		return
	}
	for range time.Tick(*every) {
		mint()
	}
}
