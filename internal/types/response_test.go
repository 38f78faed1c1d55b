package types

import (
	"encoding/json"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestGenerationResult_Valid(t *testing.T) {
	tests := []struct {
		name string
		res  GenerationResult
		want bool
	}{
		{"images no error", GenerationResult{Images: []ImageRef{{URL: "u"}}}, true},
		{"error no images", GenerationResult{Error: strPtr("boom")}, true},
		{"neither", GenerationResult{}, false},
		{"both", GenerationResult{Images: []ImageRef{{URL: "u"}}, Error: strPtr("boom")}, false},
	}
	for _, tt := range tests {
		if got := tt.res.Valid(); got != tt.want {
			t.Errorf("%s: Valid() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCredentials_Empty(t *testing.T) {
	if !(Credentials{}).Empty() {
		t.Error("zero credentials should be empty")
	}
	if (Credentials{ClientID: "id"}).Empty() {
		t.Error("client id set should not be empty")
	}
}

func TestProduct_TitleOr(t *testing.T) {
	if got := (Product{}).TitleOr("Unknown Product"); got != "Unknown Product" {
		t.Errorf("got %q", got)
	}
	if got := (Product{Title: "Mug"}).TitleOr("x"); got != "Mug" {
		t.Errorf("got %q", got)
	}
}

func TestFlexString_Unmarshal(t *testing.T) {
	var p Product
	if err := json.Unmarshal([]byte(`{"id": 7251, "title": "Mug", "price": "12.50", "images": []}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "7251" {
		t.Errorf("expected id 7251, got %q", p.ID)
	}
	if p.Price != "12.50" {
		t.Errorf("expected price 12.50, got %q", p.Price)
	}
	n, err := p.ID.Int64()
	if err != nil || n != 7251 {
		t.Errorf("Int64() = %d, %v", n, err)
	}

	if err := json.Unmarshal([]byte(`{"id": null}`), &p); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if p.ID != "" {
		t.Errorf("expected empty id for null, got %q", p.ID)
	}
}
