package cookiestore

import "testing"

func TestGroupKey(t *testing.T) {
	tests := []struct {
		host, want string
	}{
		{"example.com", "example.com"},
		{".example.com", "example.com"},
		{"www.example.com", "example.com"},
		{".a.b.example.co.uk", "example.co.uk"},
		{"user.github.io", "user.github.io"},
		{"localhost", "localhost"},
		{"127.0.0.1", "127.0.0.1"},
		{"[::1]", "[::1]"},
		{"com", "com"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := GroupKey(tt.host); got != tt.want {
				t.Fatalf("GroupKey(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}
}
