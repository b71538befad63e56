package auth

import (
	"net/http"
	"testing"
)

func TestPasswordHashing(t *testing.T) {
	a := New("secret", 60)

	hash, err := a.HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	if hash == "correct-horse-battery" {
		t.Fatal("password stored in the clear")
	}
	if !a.CheckPassword(hash, "correct-horse-battery") {
		t.Error("correct password rejected")
	}
	if a.CheckPassword(hash, "wrong-password") {
		t.Error("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	a := New("secret", 60)

	token, err := a.GenerateToken("agent1", "alice")
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("validating: %v", err)
	}
	if claims.AgentID != "agent1" || claims.Handle != "alice" {
		t.Errorf("claims = %s/%s, want agent1/alice", claims.AgentID, claims.Handle)
	}
	if claims.Subject != "agent1" {
		t.Errorf("subject = %q, want agent1", claims.Subject)
	}
}

func TestTokenRejectsUnsignedAlg(t *testing.T) {
	a := New("secret", 60)

	// {"alg":"none","typ":"JWT"} with an empty payload and signature.
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.e30."
	if _, err := a.ValidateToken(unsigned); err == nil {
		t.Error("alg=none token validated")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	a := New("secret", 60)
	b := New("other-secret", 60)

	token, _ := a.GenerateToken("agent1", "alice")
	if _, err := b.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret validated")
	}
}

func TestTokenExpiry(t *testing.T) {
	a := New("secret", -1)
	token, _ := a.GenerateToken("agent1", "alice")
	if _, err := a.ValidateToken(token); err == nil {
		t.Error("expired token validated")
	}
}

func TestExtractClaims(t *testing.T) {
	a := New("secret", 60)
	token, _ := a.GenerateToken("agent1", "alice")

	cases := []struct {
		name   string
		header string
		want   bool
	}{
		{"valid bearer", "Bearer " + token, true},
		{"lowercase scheme", "bearer " + token, true},
		{"missing header", "", false},
		{"wrong scheme", "Basic " + token, false},
		{"garbage token", "Bearer garbage", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			claims := a.ExtractClaims(req)
			if (claims != nil) != tc.want {
				t.Errorf("claims = %v, want present=%v", claims, tc.want)
			}
		})
	}
}
