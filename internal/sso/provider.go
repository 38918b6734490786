// Package sso identifies the character behind an onboarding flow using an
// OAuth2 authorization code grant followed by a call to the verify endpoint.
package sso

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/templui/discord-onboarding/internal/model"
)

var ErrNoCharacter = errors.New("sso returned no character")

type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	VerifyURL    string
	RedirectURL  string
	Scopes       []string
}

type Provider struct {
	oauth     *oauth2.Config
	verifyURL string
}

func New(cfg Config) *Provider {
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		verifyURL: cfg.VerifyURL,
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

type verifyResponse struct {
	CharacterID        int64  `json:"CharacterID"`
	CharacterName      string `json:"CharacterName"`
	CharacterOwnerHash string `json:"CharacterOwnerHash"`
}

// Identify exchanges the callback code and asks the verify endpoint who
// authenticated.
func (p *Provider) Identify(ctx context.Context, code string) (model.Identity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.verifyURL, nil)
	if err != nil {
		return model.Identity{}, err
	}

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to call verify endpoint: %w", err)
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return model.Identity{}, fmt.Errorf("verify endpoint returned status %d", resp.StatusCode)
	}

	var info verifyResponse
	err = json.NewDecoder(resp.Body).Decode(&info)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to decode verify response: %w", err)
	}
	if info.CharacterID == 0 {
		return model.Identity{}, ErrNoCharacter
	}

	return model.Identity{
		CharacterID:   info.CharacterID,
		CharacterName: info.CharacterName,
		OwnerHash:     info.CharacterOwnerHash,
	}, nil
}
