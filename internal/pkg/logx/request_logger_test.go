package logx

import "testing"

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.42", "203.0.113.0"},
		{"203.0.113.42:51234", "203.0.113.0"},
		{"127.0.0.1:8080", "127.0.0.1"},
		{"[::1]:443", "127.0.0.1"},
		{"2001:db8:85a3:1:2:8a2e:370:7334", "2001:db8:85a3:1::"},
		{"[2001:db8::1]:9000", "2001:db8::"},
		{"not-an-ip", "unknown_ip"},
		{"", "unknown_ip"},
	}

	for _, tt := range tests {
		if got := AnonymizeIP(tt.in); got != tt.want {
			t.Errorf("AnonymizeIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
