package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Laptops", "laptops"},
		{"Monitors & Displays", "monitors-displays"},
		{"  USB-C  Docks ", "usb-c-docks"},
		{"Računalniki", "racunalniki"},
		{"4K TVs!", "4k-tvs"},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.name); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestValidAssetStatus(t *testing.T) {
	for _, s := range AssetStatuses {
		if !ValidAssetStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"", "lost", "Available"} {
		if ValidAssetStatus(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestAssetNotAvailableMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("assigning: %w", AssetNotAvailable(AssetStatusBroken))

	if !errors.Is(err, ErrAssetNotAvailable) {
		t.Fatal("expected errors.Is to match ErrAssetNotAvailable")
	}
	if errors.Is(err, ErrNoActiveAssignment) {
		t.Error("expected no match against a different code")
	}

	var domainErr *Error
	if !errors.As(err, &domainErr) {
		t.Fatal("expected errors.As to find *Error")
	}
	if domainErr.Status != AssetStatusBroken {
		t.Errorf("expected status %q, got %q", AssetStatusBroken, domainErr.Status)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{ErrDuplicateSerialNumber, KindValidation},
		{ValidationFailed(map[string]string{"name": "required"}), KindValidation},
		{AssetNotAvailable(AssetStatusAssigned), KindRule},
		{fmt.Errorf("wrapped: %w", ErrCategoryHasAssets), KindRule},
		{ErrAssetNotFound, KindNotFound},
		{ErrForbidden, KindForbidden},
		{errors.New("disk full"), KindInternal},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
