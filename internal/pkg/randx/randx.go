/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is primarily used to generate standard UUID message and connection IDs,
Base62 encoded guest identity IDs, and fallback display names for clients that
authenticate without asserting one.
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

	// GuestIDPrefix is the prefix for server-assigned guest identity IDs.
	GuestIDPrefix = "guest_"

	// GuestIDRawLength is the fixed length of the Base62 part of a guest ID.
	GuestIDRawLength = 8
)

// base62String generates a random Base62 string of the given length using crypto/rand.
func base62String(length int) (string, error) {
	result := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %v", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// MessageID generates a unique, server-assigned message identifier.
func MessageID() string {
	return uuid.New().String()
}

// ConnID generates an opaque transport handle for a new connection.
func ConnID() string {
	return uuid.New().String()
}

// GuestID generates a Base62 encoded guest identity ID with the "guest_" prefix,
// assigned when a client authenticates without an ID of its own.
func GuestID() (string, error) {
	raw, err := base62String(GuestIDRawLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate guest id: %w", err)
	}
	return GuestIDPrefix + raw, nil
}

// IsValidGuestID checks if the given string is a server-assigned guest ID.
func IsValidGuestID(id string) bool {
	if !strings.HasPrefix(id, GuestIDPrefix) {
		return false
	}

	rawID := id[len(GuestIDPrefix):]

	if len(rawID) != GuestIDRawLength {
		return false
	}

	for _, char := range rawID {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// DisplayName generates a random display name with a "User_" prefix and 6
// random Base62 characters, used when a client asserts an empty name.
func DisplayName() (string, error) {
	const displayNameRandomLength = 6

	raw, err := base62String(displayNameRandomLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate display name: %w", err)
	}

	return "User_" + raw, nil
}
