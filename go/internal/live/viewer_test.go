package live

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestViewerFromToken(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantID  string
		wantErr bool
	}{
		{
			name:   "user_id claim",
			token:  func(t *testing.T) string { return signToken(t, jwt.MapClaims{"user_id": "u-1", "exp": exp.Unix()}) },
			wantID: "u-1",
		},
		{
			name:   "numeric user_id",
			token:  func(t *testing.T) string { return signToken(t, jwt.MapClaims{"user_id": 42}) },
			wantID: "42",
		},
		{
			name:   "sub fallback",
			token:  func(t *testing.T) string { return signToken(t, jwt.MapClaims{"sub": "u-2"}) },
			wantID: "u-2",
		},
		{
			name:    "no user claim",
			token:   func(t *testing.T) string { return signToken(t, jwt.MapClaims{"scope": "read"}) },
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   func(*testing.T) string { return "not-a-jwt" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viewer, err := ViewerFromToken(tt.token(t))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ViewerFromToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if viewer.UserID != tt.wantID {
				t.Errorf("UserID = %q, want %q", viewer.UserID, tt.wantID)
			}
		})
	}
}

func TestViewerFromEmptyToken(t *testing.T) {
	if _, err := ViewerFromToken(""); !errors.Is(err, ErrAuthMissing) {
		t.Errorf("error = %v, want ErrAuthMissing", err)
	}
}

func TestViewerExpired(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	viewer, err := ViewerFromToken(signToken(t, jwt.MapClaims{"user_id": "u-1", "exp": exp.Unix()}))
	if err != nil {
		t.Fatal(err)
	}
	if !viewer.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %s, want %s", viewer.ExpiresAt, exp)
	}
	if viewer.Expired(exp.Add(-time.Minute)) {
		t.Error("token should still be valid before exp")
	}
	if !viewer.Expired(exp.Add(time.Minute)) {
		t.Error("token should be expired after exp")
	}
	if (Viewer{UserID: "u"}).Expired(time.Now()) {
		t.Error("a token without exp never expires")
	}
}
