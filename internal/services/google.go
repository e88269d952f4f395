package services

import (
	"fmt"

	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var googleScopes = []string{"openid", "email", "profile"}

// GoogleFlow is a PKCE authorization-code flow against Google.
//
// The TaskMaster API verifies the credential it yields; the client never calls Google APIs itself.
type GoogleFlow struct {
	config   *oauth2.Config
	verifier string
}

// NewGoogleFlow builds a flow from config. A client id is required.
func NewGoogleFlow(cfg shared.GoogleConfig) (*GoogleFlow, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: auth.google.client_id", shared.ErrMissingCredentials)
	}
	redirect := cfg.RedirectURI
	if redirect == "" {
		redirect = "http://localhost:3000/callback"
	}

	return &GoogleFlow{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirect,
			Scopes:       googleScopes,
			Endpoint:     endpoints.Google,
		},
		verifier: oauth2.GenerateVerifier(),
	}, nil
}

// Config returns the underlying OAuth2 config.
func (g *GoogleFlow) Config() *oauth2.Config { return g.config }

// AuthURL returns the consent page URL carrying state and the PKCE challenge.
func (g *GoogleFlow) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(g.verifier))
}

// ExchangeOptions returns the options the code exchange must send to prove possession of the verifier.
func (g *GoogleFlow) ExchangeOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{oauth2.VerifierOption(g.verifier)}
}

// Credential picks the value to send to /auth/google/: the id_token when Google returned one,
// the access token otherwise.
func Credential(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", fmt.Errorf("%w: no token received", shared.ErrMissingCredentials)
	}
	if id, ok := tok.Extra("id_token").(string); ok && id != "" {
		return id, nil
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token has no access token", shared.ErrMissingCredentials)
	}
	return tok.AccessToken, nil
}
