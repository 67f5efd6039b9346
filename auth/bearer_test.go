package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func bearerRequest(value string) *Request {
	h := http.Header{}
	if value != "" {
		h.Set("Authorization", value)
	}
	return &Request{Header: h}
}

func TestRequest_Bearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerRequest(tt.header).Bearer()
		if got != tt.want || ok != tt.ok {
			t.Errorf("Bearer(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestKeyAuthenticator(t *testing.T) {
	a := NewKeyAuthenticator("s3cret")
	ctx := context.Background()

	res, err := a.Authenticate(ctx, bearerRequest("Bearer s3cret"))
	if err != nil || !res.Authenticated {
		t.Fatalf("Authenticate() = %+v, %v", res, err)
	}
	if res.Identity.Principal != KeyPrincipal || res.Method != MethodKey {
		t.Errorf("identity = %+v", res.Identity)
	}

	res, _ = a.Authenticate(ctx, bearerRequest("Bearer wrong"))
	if res.Authenticated || !errors.Is(res.Err, ErrInvalidCredentials) {
		t.Errorf("wrong key result = %+v", res)
	}

	res, _ = a.Authenticate(ctx, bearerRequest(""))
	if res.Authenticated || !errors.Is(res.Err, ErrMissingCredentials) {
		t.Errorf("missing key result = %+v", res)
	}
}

func TestKeyAuthenticator_EmptyKeyRejectsAll(t *testing.T) {
	a := NewKeyAuthenticator("")
	res, _ := a.Authenticate(context.Background(), bearerRequest("Bearer anything"))
	if res.Authenticated {
		t.Error("empty key accepted a token")
	}
}
