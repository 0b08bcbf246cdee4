package protocol

import (
	"errors"
	"strings"
)

// LoginPrefix opens the single handshake line of every connection.
const LoginPrefix = "LOGIN"

// ErrMalformedLogin marks a handshake line that does not match
// "LOGIN <username> <password>".
var ErrMalformedLogin = errors.New("malformed login line")

// ParseLogin splits the handshake line. The password keeps any embedded
// spaces; only the first two separators are significant.
func ParseLogin(line string) (username, password string, err error) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if len(parts) != 3 || parts[0] != LoginPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", ErrMalformedLogin
	}
	return parts[1], parts[2], nil
}
