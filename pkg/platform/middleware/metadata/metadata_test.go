package metadata

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "first forwarded hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remoteAddr: "10.0.0.2:4000", want: "203.0.113.7"},
		{name: "real ip header", headers: map[string]string{"X-Real-IP": " 198.51.100.4 "}, remoteAddr: "10.0.0.2:4000", want: "198.51.100.4"},
		{name: "ipv4 remote addr", remoteAddr: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "ipv6 remote addr", remoteAddr: "[::1]:5555", want: "::1"},
		{name: "remote addr without port", remoteAddr: "192.0.2.1", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
