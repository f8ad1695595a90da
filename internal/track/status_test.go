// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package track

import "testing"

func TestStatusFromCode(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		want    ResolutionStatus
		wantErr bool
	}{
		{name: "all found", code: 0, want: AllFound},
		{name: "nothing found", code: -3, want: NothingFound},
		{name: "untested sentinel", code: -4, want: Untested},
		{name: "duplicate approximate code folds to 3", code: 4, want: ArtistTitleApproximate},
		{name: "below range", code: -5, wantErr: true},
		{name: "above range", code: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StatusFromCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Fatalf("StatusFromCode(%d) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("StatusFromCode(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("2"); err != nil || s != TitleApproximate {
		t.Errorf("ParseStatus(\"2\") = %v, %v", s, err)
	}
	if _, err := ParseStatus("x"); err == nil {
		t.Error("expected error for non-numeric code")
	}
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status     ResolutionStatus
		coordinate bool
		artistID   bool
		titleID    bool
	}{
		{Untested, false, false, false},
		{NothingFound, false, false, false},
		{ArtistNotFound, false, false, false},
		{TitleNotFound, true, true, false},
		{AllFound, true, true, true},
		{ArtistApproximate, true, true, true},
		{TitleApproximate, true, true, true},
		{ArtistTitleApproximate, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.HasCoordinate(); got != tt.coordinate {
				t.Errorf("HasCoordinate() = %v, want %v", got, tt.coordinate)
			}
			if got := tt.status.HasArtistID(); got != tt.artistID {
				t.Errorf("HasArtistID() = %v, want %v", got, tt.artistID)
			}
			if got := tt.status.HasTitleID(); got != tt.titleID {
				t.Errorf("HasTitleID() = %v, want %v", got, tt.titleID)
			}
		})
	}
}

func TestStatusesAreOrderedByCode(t *testing.T) {
	for i := 1; i < len(Statuses); i++ {
		if Statuses[i-1] >= Statuses[i] {
			t.Fatalf("Statuses not strictly increasing at %d: %v >= %v", i, Statuses[i-1], Statuses[i])
		}
	}
	if len(Statuses) != 8 {
		t.Errorf("len(Statuses) = %d, want 8", len(Statuses))
	}
}

func TestKeyNormalization(t *testing.T) {
	a := Key("  The  Beatles ", "Let It Be")
	b := Key("the beatles", "let it   be")
	if a != b {
		t.Errorf("Key mismatch: %q != %q", a, b)
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Key must separate artist and title")
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath("music/./a/../b.mp3"); got != "music/b.mp3" {
		t.Errorf("NormalizePath = %q", got)
	}
	if got := NormalizePath(""); got != "" {
		t.Errorf("NormalizePath(\"\") = %q", got)
	}
}
