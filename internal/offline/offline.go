// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNonLocalhost is returned for a non-loopback URL in offline mode.
	ErrNonLocalhost = errors.New("offline mode: only localhost backends are allowed")

	// ErrCloudBlocked is returned when a cloud backend is requested offline.
	ErrCloudBlocked = errors.New("offline mode: cloud backend disabled")

	// ErrInvalidURLScheme is returned when a URL is not http or https.
	ErrInvalidURLScheme = errors.New("only http and https backend URLs are allowed")

	// ErrInvalidURL is returned when a URL does not parse.
	ErrInvalidURL = errors.New("invalid backend URL")
)

// =============================================================================
// MODE MANAGEMENT
// =============================================================================

var (
	offlineMode      bool
	offlineModeMutex sync.RWMutex
)

// SetOfflineMode enables or disables offline mode for the process.
func SetOfflineMode(enabled bool) {
	offlineModeMutex.Lock()
	defer offlineModeMutex.Unlock()
	offlineMode = enabled
}

// IsOfflineMode returns true if offline mode is currently enabled.
func IsOfflineMode() bool {
	offlineModeMutex.RLock()
	defer offlineModeMutex.RUnlock()
	return offlineMode
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost reports whether host (optionally with a port) is "localhost"
// or a loopback IP. Every 127.0.0.0/8 address and every spelling of ::1
// counts.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateURL checks a backend base URL. The scheme must be http or https;
// in offline mode the host must also be loopback.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: %q", ErrInvalidURLScheme, rawURL)
	}

	if IsOfflineMode() && !IsLocalhost(parsed.Hostname()) {
		return fmt.Errorf("%w: %s", ErrNonLocalhost, parsed.Host)
	}
	return nil
}

// =============================================================================
// FEATURE GUARDS
// =============================================================================

// CheckCloudAllowed returns ErrCloudBlocked in offline mode.
func CheckCloudAllowed() error {
	if IsOfflineMode() {
		return ErrCloudBlocked
	}
	return nil
}
