package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/secure-review/internal/apperror"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubProfile is what the callback needs from GitHub after a successful
// code exchange.
type GitHubProfile struct {
	ID           string // numeric GitHub id, stringified
	Login        string
	Name         string
	AvatarURL    string
	PrimaryEmail string
}

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	// Endpoint overrides, empty means github.com. Used by tests and
	// GitHub Enterprise installs.
	AuthURL  string
	TokenURL string
	APIURL   string

	HTTPClient *http.Client
}

// GitHubProvider runs the server side of GitHub's authorization code flow.
//
// THE FLOW:
//
//  1. AuthURL sends the browser to github.com with our client id and a state.
//  2. The user approves and GitHub redirects back with ?code=...&state=...
//  3. Exchange trades the code for an access token (server to server).
//  4. The token reads /user and /user/emails, then it is thrown away.
//
// STATE PARAMETER:
// The state is a random single-use value the service stores before the
// redirect and consumes on the callback. A callback whose state was never
// issued, or was already used, is rejected. That stops an attacker from
// completing a login in the victim's browser with the attacker's own code.
type GitHubProvider struct {
	config     *oauth2.Config
	apiURL     string
	httpClient *http.Client
}

func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	// GitHub accepts client credentials in the form body; pinning the style
	// keeps the exchange to a single request.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	apiURL := strings.TrimSuffix(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultGitHubAPI
	}

	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"user:email"},
			Endpoint:     endpoint,
		},
		apiURL:     apiURL,
		httpClient: cfg.HTTPClient,
	}
}

// AuthURL builds the authorize redirect carrying client id, scope and state.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the code for a token, then reads /user and /user/emails.
//
// A token response without an access token (GitHub answers 200 with an
// "error" field for bad codes) is apperror.ErrOAuthExchange and no further
// calls are made. No email flagged primary is apperror.ErrNoPrimaryEmail.
// Transport failures and non-2xx statuses are returned wrapped as-is.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubProfile, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, classifyExchangeError(err)
	}

	client := p.config.Client(ctx, token)

	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := p.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return nil, err
	}

	profile := &GitHubProfile{
		ID:        strconv.FormatInt(user.ID, 10),
		Login:     user.Login,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
	for _, e := range emails {
		if e.Primary && e.Email != "" {
			profile.PrimaryEmail = e.Email
			break
		}
	}
	if profile.PrimaryEmail == "" {
		return nil, apperror.NoPrimaryEmail()
	}

	return profile, nil
}

func (p *GitHubProvider) getJSON(ctx context.Context, client *http.Client, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("auth: building GitHub %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: calling GitHub %s API: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: GitHub %s API returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("auth: decoding GitHub %s response: %w", path, err)
	}
	return nil
}

// classifyExchangeError separates "GitHub said no" (a client problem) from
// "GitHub is broken" (a server problem).
func classifyExchangeError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.Response != nil && (rErr.Response.StatusCode < 200 || rErr.Response.StatusCode > 299) {
			return fmt.Errorf("auth: GitHub token endpoint returned status %d: %w", rErr.Response.StatusCode, err)
		}
		detail := rErr.ErrorDescription
		if detail == "" {
			detail = rErr.ErrorCode
		}
		return apperror.OAuthExchange(detail)
	}
	if strings.Contains(err.Error(), "missing access_token") {
		return apperror.OAuthExchange("")
	}
	return fmt.Errorf("auth: exchanging OAuth code: %w", err)
}
