// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragworks-tui/internal/backend"
	"github.com/jeranaias/ragworks-tui/internal/dispatch"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *mockAuthenticator) Register(ctx context.Context, username, password string) error {
	return m.Called(ctx, username, password).Error(0)
}

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Establish(credential, identity string) error {
	return m.Called(credential, identity).Error(0)
}

func (m *mockSessions) RequireLogin(notice string) {
	m.Called(notice)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "Sign In", ModeSignIn.String())
	assert.Equal(t, "Create Account", ModeCreateAccount.String())
}

func TestForm_ToggleKeepsFields(t *testing.T) {
	f := NewForm(&mockAuthenticator{}, &mockSessions{})
	f.Username, f.Password = "alice", "pw"

	f.Toggle()
	assert.Equal(t, ModeCreateAccount, f.Mode())
	f.Toggle()
	assert.Equal(t, ModeSignIn, f.Mode())
	assert.Equal(t, "alice", f.Username)
	assert.Equal(t, "pw", f.Password)
}

func TestForm_SubmitIncomplete(t *testing.T) {
	api := &mockAuthenticator{}
	f := NewForm(api, &mockSessions{})

	for _, fields := range [][2]string{{"", ""}, {"alice", ""}, {"", "pw"}, {"   ", "pw"}} {
		f.Username, f.Password = fields[0], fields[1]
		assert.False(t, f.CanSubmit())
		_, err := f.Submit(context.Background())
		assert.ErrorIs(t, err, ErrIncomplete)
	}
	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestForm_SignInEstablishesSession(t *testing.T) {
	api := &mockAuthenticator{}
	sessions := &mockSessions{}
	api.On("Login", mock.Anything, "alice", "pw").Return("tok-1", nil)
	sessions.On("Establish", "tok-1", "alice").Return(nil)

	f := NewForm(api, sessions)
	f.Username, f.Password = "alice", "pw"

	res, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, res.SignedIn)
	assert.Equal(t, "alice", res.Identity)
	assert.Empty(t, f.Password)
	sessions.AssertExpectations(t)
}

func TestForm_SignInNormalizesUsername(t *testing.T) {
	api := &mockAuthenticator{}
	sessions := &mockSessions{}
	// "e" followed by a combining acute accent composes to U+00E9.
	api.On("Login", mock.Anything, "jos\u00e9", "pw").Return("tok", nil)
	sessions.On("Establish", "tok", "jos\u00e9").Return(nil)

	f := NewForm(api, sessions)
	f.Username, f.Password = " jose\u0301 ", "pw"

	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestForm_SignInFailureIsVerbatim(t *testing.T) {
	api := &mockAuthenticator{}
	sessions := &mockSessions{}
	api.On("Login", mock.Anything, "alice", "bad").
		Return("", &backend.APIError{Op: "login", Status: 401, Message: "Invalid credentials"})

	f := NewForm(api, sessions)
	f.Username, f.Password = "alice", "bad"

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.Equal(t, "alice", f.Username)
	assert.Equal(t, "bad", f.Password)
	sessions.AssertNotCalled(t, "Establish", mock.Anything, mock.Anything)
}

func TestForm_RegisterSwitchesToSignIn(t *testing.T) {
	api := &mockAuthenticator{}
	sessions := &mockSessions{}
	api.On("Register", mock.Anything, "bob", "pw").Return(nil)

	f := NewForm(api, sessions)
	f.SetMode(ModeCreateAccount)
	f.Username, f.Password = "bob", "pw"

	res, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, res.SignedIn)
	assert.Equal(t, NoticeAccountCreated, res.Notice)
	assert.Equal(t, ModeSignIn, f.Mode())
	assert.Equal(t, "bob", f.Username)
	assert.Equal(t, "pw", f.Password)
	sessions.AssertNotCalled(t, "Establish", mock.Anything, mock.Anything)
}

func TestForm_RegisterFailureKeepsMode(t *testing.T) {
	api := &mockAuthenticator{}
	api.On("Register", mock.Anything, "bob", "pw").
		Return(&backend.APIError{Op: "register", Status: 409, Message: "User already exists"})

	f := NewForm(api, &mockSessions{})
	f.SetMode(ModeCreateAccount)
	f.Username, f.Password = "bob", "pw"

	_, err := f.Submit(context.Background())
	assert.EqualError(t, err, "User already exists")
	assert.Equal(t, ModeCreateAccount, f.Mode())
}

func TestForm_BusyWhileSubmitting(t *testing.T) {
	guard := dispatch.NewGuard()
	release, ok := guard.TryAcquire(dispatch.OpLogin)
	require.True(t, ok)
	defer release()

	api := &mockAuthenticator{}
	f := NewForm(api, &mockSessions{}, WithGuard(guard))
	f.Username, f.Password = "alice", "pw"

	assert.True(t, f.Busy())
	_, err := f.Submit(context.Background())
	assert.True(t, errors.Is(err, dispatch.ErrBusy))
	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}
