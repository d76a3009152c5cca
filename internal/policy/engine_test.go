package policy

import (
	"context"
	"testing"
)

func TestUploadPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	cases := []struct {
		name     string
		input    UploadInput
		decision string
	}{
		{"csv allowed", UploadInput{Filename: "data.csv", Bytes: 100, MaxBytes: 1000}, "allow"},
		{"uppercase extension allowed", UploadInput{Filename: "REPORT.PDF", Bytes: 100, MaxBytes: 1000}, "allow"},
		{"xlsx allowed", UploadInput{Filename: "book.xlsx", Bytes: 100, MaxBytes: 1000}, "allow"},
		{"jpeg allowed", UploadInput{Filename: "photo.jpeg", Bytes: 100, MaxBytes: 1000}, "allow"},
		{"executable blocked", UploadInput{Filename: "setup.exe", Bytes: 100, MaxBytes: 1000}, "block"},
		{"no extension blocked", UploadInput{Filename: "README", Bytes: 100, MaxBytes: 1000}, "block"},
		{"oversize blocked", UploadInput{Filename: "data.csv", Bytes: 2000, MaxBytes: 1000}, "block"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := engine.EvaluateUpload(ctx, tc.input)
			if err != nil {
				t.Fatalf("EvaluateUpload failed: %v", err)
			}
			if decision != tc.decision {
				t.Fatalf("expected %s, got %s", tc.decision, decision)
			}
		})
	}
}
