// Package weblink builds the web-app deep link and greeting sent in reply to /start.
package weblink

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the web application the button opens.
	DefaultBaseURL = "https://yourblog.blogspot.com"
	// DefaultUsername replaces a missing Telegram handle.
	DefaultUsername = "User"
	// ButtonText is the label of the web-app button.
	ButtonText = "Open App 🚀"
)

// Identity holds the sender fields embedded into the link.
type Identity struct {
	ID        int64
	FirstName string
	Username  string
}

// Builder builds links against a fixed base address.
type Builder struct {
	Base string
	// Encode query-escapes the interpolated values. Off by default: the web
	// application reads the raw values.
	Encode bool
}

// NewBuilder returns a Builder for base, falling back to DefaultBaseURL.
func NewBuilder(base string, encode bool) Builder {
	if base == "" {
		base = DefaultBaseURL
	}
	return Builder{Base: base, Encode: encode}
}

// Build returns <base>/?id=<id>&name=<first name>&username=<handle>.
func (b Builder) Build(id Identity) string {
	username := id.Username
	if username == "" {
		username = DefaultUsername
	}
	name := id.FirstName
	if b.Encode {
		name = url.QueryEscape(name)
		username = url.QueryEscape(username)
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(b.Base, "/"))
	sb.WriteString("/?id=")
	sb.WriteString(strconv.FormatInt(id.ID, 10))
	sb.WriteString("&name=")
	sb.WriteString(name)
	sb.WriteString("&username=")
	sb.WriteString(username)
	return sb.String()
}

// Greeting returns the reply text for firstName.
func Greeting(firstName string) string {
	if firstName == "" {
		return "Hello! Welcome to our app."
	}
	return "Hello " + firstName + "! Welcome to our app."
}
