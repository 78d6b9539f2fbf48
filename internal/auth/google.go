package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Scopes requested at login. youtube.upload lets the reconciler publish on
// the user's behalf long after the session ends.
var Scopes = []string{
	oauth2api.OpenIDScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
	youtube.YoutubeUploadScope,
}

// GoogleUser is the identity and grant returned by a completed login.
type GoogleUser struct {
	Subject string
	Email   string
	Name    string
	Token   *oauth2.Token
}

// GoogleProvider runs the OAuth 2.0 authorization code flow against Google.
type GoogleProvider struct {
	config *oauth2.Config
	// userinfoEndpoint overrides the userinfo API base URL.
	userinfoEndpoint string
}

// NewGoogleProvider configures the authorization code flow with offline
// access, so the callback yields a refresh token for uploads.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// Config exposes the OAuth client configuration; the uploader refreshes user
// tokens with it.
func (p *GoogleProvider) Config() *oauth2.Config {
	return p.config
}

// AuthURL returns the consent page URL. Offline access with a forced consent
// prompt makes Google return a refresh token on every login.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens and the user's profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(p.config.Client(ctx, token))}
	if p.userinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.userinfoEndpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: creating userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("auth: fetching userinfo: %w", err)
	}
	if info.Id == "" {
		return nil, errors.New("auth: Google returned a user without an id")
	}

	return &GoogleUser{
		Subject: info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Token:   token,
	}, nil
}
