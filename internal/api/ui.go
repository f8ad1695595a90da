// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// maxNotifications is how many messages UIState keeps for the status view.
const maxNotifications = 20

// Notification is a message shown to the listener. Prompts answered on the
// listener's behalf are recorded too, with their answer.
type Notification struct {
	Time    time.Time `json:"time"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Prompt  bool      `json:"prompt,omitempty"`
	Answer  bool      `json:"answer,omitempty"`
}

// UIView is the UI part of the status response.
type UIView struct {
	ControlsEnabled bool           `json:"controls_enabled"`
	AutoConfirm     bool           `json:"auto_confirm"`
	Notifications   []Notification `json:"notifications"`
}

// UIState implements shuffle.UI for a headless host.
type UIState struct {
	mu              sync.Mutex
	controlsEnabled bool
	autoConfirm     bool
	notifications   []Notification
	now             func() time.Time
	logger          zerolog.Logger
}

// NewUIState creates the UI state. autoConfirm answers every prompt.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewUIState(autoConfirm bool, logger zerolog.Logger) *UIState {
	return &UIState{
		autoConfirm: autoConfirm,
		now:         time.Now,
		logger:      logger.With().Str("component", "ui").Logger(),
	}
}

// SetControlsEnabled records whether the shuffle controls are usable.
func (u *UIState) SetControlsEnabled(enabled bool) {
	u.mu.Lock()
	u.controlsEnabled = enabled
	u.mu.Unlock()
	u.logger.Debug().Bool("enabled", enabled).Msg("Shuffle controls toggled")
}

// ControlsEnabled reports the last SetControlsEnabled value.
func (u *UIState) ControlsEnabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.controlsEnabled
}

// Confirm answers with the auto-confirm setting.
func (u *UIState) Confirm(_ context.Context, title, question string) bool {
	u.mu.Lock()
	answer := u.autoConfirm
	u.push(Notification{Title: title, Message: question, Prompt: true, Answer: answer})
	u.mu.Unlock()

	u.logger.Info().Str("title", title).Str("question", question).Bool("answer", answer).Msg("Prompt answered")
	return answer
}

// Notify records a message.
func (u *UIState) Notify(_ context.Context, title, message string) {
	u.mu.Lock()
	u.push(Notification{Title: title, Message: message})
	u.mu.Unlock()

	u.logger.Info().Str("title", title).Str("message", message).Msg("Notification")
}

// push must be called with mu held.
func (u *UIState) push(n Notification) {
	n.Time = u.now()
	u.notifications = append(u.notifications, n)
	if over := len(u.notifications) - maxNotifications; over > 0 {
		u.notifications = append(u.notifications[:0:0], u.notifications[over:]...)
	}
}

// View returns a copy of the state, newest notification last.
func (u *UIState) View() UIView {
	u.mu.Lock()
	defer u.mu.Unlock()
	return UIView{
		ControlsEnabled: u.controlsEnabled,
		AutoConfirm:     u.autoConfirm,
		Notifications:   append([]Notification{}, u.notifications...),
	}
}
