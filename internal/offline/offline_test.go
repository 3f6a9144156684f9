// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// setOffline switches offline mode for one test.
func setOffline(t *testing.T, enabled bool) {
	t.Helper()
	prev := IsOfflineMode()
	SetOfflineMode(enabled)
	t.Cleanup(func() { SetOfflineMode(prev) })
}

func TestSetOfflineMode(t *testing.T) {
	setOffline(t, true)
	assert.True(t, IsOfflineMode())

	SetOfflineMode(false)
	assert.False(t, IsOfflineMode())
}

func TestIsOfflineMode_ThreadSafe(t *testing.T) {
	setOffline(t, false)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(on bool) {
			defer wg.Done()
			SetOfflineMode(on)
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			_ = IsOfflineMode()
		}()
	}
	wg.Wait()
}

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST:11434", true},
		{"127.0.0.1", true},
		{"127.8.9.10:80", true},
		{"::1", true},
		{"[::1]:11434", true},
		{"0:0:0:0:0:0:0:1", true},
		{"api.openai.com", false},
		{"localhost.evil.com", false},
		{"192.168.1.5", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocalhost(tt.host))
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		offline bool
		wantErr error
	}{
		{"online cloud", "https://api.openai.com/v1", false, nil},
		{"online local", "http://localhost:11434", false, nil},
		{"file scheme", "file:///etc/passwd", false, ErrInvalidURLScheme},
		{"no scheme", "localhost:11434", false, ErrInvalidURLScheme},
		{"offline local", "http://127.0.0.1:11434", true, nil},
		{"offline ipv6", "http://[::1]:11434", true, nil},
		{"offline cloud", "https://api.openai.com/v1", true, ErrNonLocalhost},
		{"offline userinfo trick", "http://localhost@evil.com/", true, ErrNonLocalhost},
		{"bad escape", "http://%zz", false, ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setOffline(t, tt.offline)
			err := ValidateURL(tt.url)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCheckCloudAllowed(t *testing.T) {
	setOffline(t, false)
	assert.NoError(t, CheckCloudAllowed())

	SetOfflineMode(true)
	assert.ErrorIs(t, CheckCloudAllowed(), ErrCloudBlocked)
}
