// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"fmt"
)

// Credentials is the body of /login and /register.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type oauthRequest struct {
	Token string `json:"token"`
}

// OAuthResult is the session issued for a completed browser sign-in.
type OAuthResult struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
}

// Login exchanges a username and password for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := c.postJSON(ctx, "login", c.authURL+"/login", "", FallbackAuth,
		Credentials{Username: username, Password: password})
	if err != nil {
		return "", err
	}
	var resp loginResponse
	if err := decode("login", body, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: login response has no access_token", ErrBadResponse)
	}
	return resp.AccessToken, nil
}

// Register creates an account. It does not sign in; any 2xx body is
// accepted.
func (c *Client) Register(ctx context.Context, username, password string) error {
	_, err := c.postJSON(ctx, "register", c.authURL+"/register", "", FallbackAuth,
		Credentials{Username: username, Password: password})
	return err
}

// ExchangeOAuth trades the one-time token from a browser sign-in callback
// for an access token and the username it belongs to.
func (c *Client) ExchangeOAuth(ctx context.Context, oneTimeToken string) (OAuthResult, error) {
	body, err := c.postJSON(ctx, "oauth_exchange", c.authURL+"/auth/oauth", "", FallbackOAuth,
		oauthRequest{Token: oneTimeToken})
	if err != nil {
		return OAuthResult{}, err
	}
	var res OAuthResult
	if err := decode("oauth_exchange", body, &res); err != nil {
		return OAuthResult{}, err
	}
	if res.AccessToken == "" || res.Username == "" {
		return OAuthResult{}, fmt.Errorf("%w: oauth response is missing access_token or username", ErrBadResponse)
	}
	return res, nil
}
