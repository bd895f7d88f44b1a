// Command hashpw reads a password from stdin and prints the bcrypt hash for
// ADMIN_PASSWORD_HASH.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Skotchmaster/storefront/internal/hash"
)

func main() {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		log.Fatalf("read password: %v", err)
	}

	h, err := hash.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	fmt.Println(h)
}
