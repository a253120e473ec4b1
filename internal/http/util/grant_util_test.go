package util

import (
	"errors"
	"testing"
	"time"
)

func TestGrantSigner_IssueValidate(t *testing.T) {
	signer := NewGrantSigner([]byte("test-secret"), time.Minute)

	grant, err := signer.Issue("ana", "wedding-photos")
	if err != nil {
		t.Fatalf("issue grant: %v", err)
	}

	if err := signer.Validate("ana", "wedding-photos", grant); err != nil {
		t.Fatalf("validate grant: %v", err)
	}

	if err := signer.Validate("ana", "other-topic", grant); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected grant bound to topic, got %v", err)
	}
	if err := signer.Validate("bob", "wedding-photos", grant); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected grant bound to slug, got %v", err)
	}
}

func TestGrantSigner_Expired(t *testing.T) {
	signer := NewGrantSigner([]byte("test-secret"), -time.Second)

	grant, err := signer.Issue("ana", "")
	if err != nil {
		t.Fatalf("issue grant: %v", err)
	}
	if err := signer.Validate("ana", "", grant); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected expired grant to fail, got %v", err)
	}
}

func TestGrantSigner_MissingSecret(t *testing.T) {
	signer := NewGrantSigner(nil, time.Minute)
	if _, err := signer.Issue("ana", ""); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
