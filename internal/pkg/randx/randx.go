/*
Package randx generates identifiers with crypto/rand.

Connection ids are short Base62 strings with a fixed prefix so they stand out in logs;
event and entity ids are UUIDs.
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
	// Base62Chars is the alphabet used for Base62 identifiers.
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the size of the Base62 alphabet.
	Base62Len = int64(len(Base62Chars))

	// ConnectionIDPrefix prefixes every connection id.
	ConnectionIDPrefix = "conn_"

	// ConnectionIDRawLength is the length of the random part of a connection id.
	ConnectionIDRawLength = 12
)

// Base62 returns n cryptographically random Base62 characters.
func Base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// ConnectionID returns a new connection handle id. It falls back to a UUID when the
// system randomness source fails.
func ConnectionID() string {
	raw, err := Base62(ConnectionIDRawLength)
	if err != nil {
		return ConnectionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return ConnectionIDPrefix + raw
}

// IsValidConnectionID reports whether id has the shape produced by ConnectionID.
func IsValidConnectionID(id string) bool {
	raw, ok := strings.CutPrefix(id, ConnectionIDPrefix)
	if !ok || len(raw) == 0 {
		return false
	}

	for _, char := range raw {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// EventID returns a UUID v4 string used to identify outbound events.
func EventID() string {
	return uuid.NewString()
}
