package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/sususave/internal/auth"
	"github.com/mmynk/sususave/internal/models"
)

func TestAuthenticate(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(&models.Member{ID: "m-1"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"valid", "Bearer " + token, nil},
		{"missing", "", auth.ErrMissingToken},
		{"wrong scheme", "Basic " + token, auth.ErrInvalidToken},
		{"no token", "Bearer ", auth.ErrInvalidToken},
		{"bad token", "Bearer abc", auth.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := authenticate(jwtManager, tt.header)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("authenticate() error = %v", err)
			}
			if claims.MemberID != "m-1" {
				t.Errorf("MemberID = %q, want m-1", claims.MemberID)
			}
		})
	}
}

func TestMemberIDContext(t *testing.T) {
	if got := GetMemberID(context.Background()); got != "" {
		t.Errorf("GetMemberID() = %q, want empty", got)
	}
	ctx := WithMemberID(context.Background(), "m-2")
	if got := GetMemberID(ctx); got != "m-2" {
		t.Errorf("GetMemberID() = %q, want m-2", got)
	}
}
