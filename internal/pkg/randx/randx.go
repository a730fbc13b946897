/*
Package randx generates identifiers used by the relay and the session client.

Connection IDs are UUID v4 strings. Observer names combine a prefix with a short
Base62 suffix drawn from crypto/rand.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// NameSuffixLength is the number of random characters appended by Name.
	NameSuffixLength = 6
)

// ConnectionID returns a new UUID v4 string identifying one relay connection.
func ConnectionID() string {
	return uuid.New().String()
}

// IsValidConnectionID reports whether id parses as a UUID.
func IsValidConnectionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Name returns prefix followed by an underscore and NameSuffixLength Base62 characters.
func Name(prefix string) (string, error) {
	result := make([]byte, NameSuffixLength)

	for i := 0; i < NameSuffixLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for name: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return strings.TrimSpace(prefix) + "_" + string(result), nil
}
