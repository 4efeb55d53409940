// Command hashsecret prints a bcrypt hash suitable for the secret field of a
// device registry entry or for ADMIN_API_KEY.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"unlock-relay/pkg/hash"
)

func main() {
	secret := flag.String("secret", "", "secret to hash (read from stdin when empty)")
	deviceID := flag.String("device", "", "print a registry YAML entry for this device id")
	flag.Parse()

	value := *secret
	if value == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "failed to read secret: %v\n", err)
			os.Exit(1)
		}
		value = strings.TrimRight(line, "\r\n")
	}

	hashed, err := hash.Hash(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash secret: %v\n", err)
		os.Exit(1)
	}

	if *deviceID != "" {
		fmt.Printf("  - id: %s\n    secret: %q\n", *deviceID, hashed)
		return
	}
	fmt.Println(hashed)
}
