// Package deeplink encodes equipment paths into start-command payloads, so a
// QR code on a machine can open the bot straight at the description prompt.
package deeplink

import (
	"encoding/base64"
	"strings"
)

// Encode returns the url-safe base64 form of an equipment path without
// padding, as required for start payloads.
func Encode(equipment string) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(equipment)), "=")
}

// Decode reverses Encode, tolerating stripped padding. A malformed payload
// yields "", which callers treat as no payload at all.
func Decode(payload string) string {
	if payload == "" {
		return ""
	}
	if n := len(payload) % 4; n != 0 {
		payload += strings.Repeat("=", 4-n)
	}
	b, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return ""
	}
	return string(b)
}
