// Command genkey prints an API key and the API_KEY_HASH value for it.
//
// Usage:
//
//	go run ./cmd/genkey            # new random key
//	go run ./cmd/genkey <api_key>  # hash an existing key
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/api/middleware"
)

const keyPrefix = "rc_"

func main() {
	key := ""
	if len(os.Args) > 1 {
		key = os.Args[1]
	} else {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		key = keyPrefix + hex.EncodeToString(buf)
	}

	fmt.Printf("KEY=%s\nAPI_KEY_HASH=%s\n", key, middleware.HashAPIKey(key))
}
