package security

import (
	"testing"
	"time"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	token, errSign := SignAdminToken("secret", 42, time.Hour)
	if errSign != nil {
		t.Fatalf("sign: %v", errSign)
	}

	claims, errParse := ParseAdminToken("secret", token)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.AdminID != 42 {
		t.Fatalf("expected admin id 42, got %d", claims.AdminID)
	}

	if _, errWrong := ParseAdminToken("other-secret", token); errWrong == nil {
		t.Fatalf("expected parse failure with wrong secret")
	}
}

func TestUserTokenRejectsAdminSubject(t *testing.T) {
	token, errSign := SignAdminToken("secret", 7, time.Hour)
	if errSign != nil {
		t.Fatalf("sign: %v", errSign)
	}
	// Admin tokens carry no user_id claim, so user parsing must fail.
	if _, errParse := ParseUserToken("secret", token); errParse == nil {
		t.Fatalf("expected user parse of admin token to fail")
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, errHash := HashPassword("hunter2")
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	if !CheckPassword(hashed, "hunter2") {
		t.Fatalf("expected password to verify")
	}
	if CheckPassword(hashed, "hunter3") {
		t.Fatalf("expected wrong password to fail")
	}
}
