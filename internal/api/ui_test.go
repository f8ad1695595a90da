// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package api

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func TestUIState_Confirm(t *testing.T) {
	tests := []struct {
		name        string
		autoConfirm bool
	}{
		{"declines without auto confirm", false},
		{"accepts with auto confirm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui := NewUIState(tt.autoConfirm, zerolog.Nop())
			if got := ui.Confirm(context.Background(), "Rescan library?", "Rescan now?"); got != tt.autoConfirm {
				t.Errorf("Confirm = %v, want %v", got, tt.autoConfirm)
			}
			view := ui.View()
			if len(view.Notifications) != 1 {
				t.Fatalf("Expected one recorded prompt, got %d", len(view.Notifications))
			}
			n := view.Notifications[0]
			if !n.Prompt || n.Answer != tt.autoConfirm || n.Title != "Rescan library?" {
				t.Errorf("unexpected prompt record: %+v", n)
			}
		})
	}
}

func TestUIState_NotificationsBounded(t *testing.T) {
	ui := NewUIState(false, zerolog.Nop())
	for i := 0; i < maxNotifications+5; i++ {
		ui.Notify(context.Background(), "n", fmt.Sprint(i))
	}

	view := ui.View()
	if len(view.Notifications) != maxNotifications {
		t.Fatalf("Expected %d notifications, got %d", maxNotifications, len(view.Notifications))
	}
	if first := view.Notifications[0].Message; first != "5" {
		t.Errorf("Expected oldest kept message 5, got %s", first)
	}
	if last := view.Notifications[maxNotifications-1].Message; last != fmt.Sprint(maxNotifications+4) {
		t.Errorf("Expected newest message last, got %s", last)
	}
}

func TestUIState_ControlsEnabled(t *testing.T) {
	ui := NewUIState(false, zerolog.Nop())
	if ui.ControlsEnabled() {
		t.Error("controls should start disabled")
	}
	ui.SetControlsEnabled(true)
	if !ui.ControlsEnabled() || !ui.View().ControlsEnabled {
		t.Error("controls should be enabled")
	}
}
