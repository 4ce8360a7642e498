package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"golang.org/x/oauth2"
)

var (
	ErrOIDCNotConfigured = errors.New("OIDC configuration incomplete")
	ErrOIDCRejected      = errors.New("identity provider rejected the credentials")
)

// ExternalIdentity is what the identity provider vouches for.
type ExternalIdentity struct {
	Email     string
	FirstName string
	LastName  string
}

// OIDCVerifier checks console credentials against an external identity
// provider using the resource owner password grant.
type OIDCVerifier struct {
	config      *oauth2.Config
	issuer      string
	userInfoURL string
	httpClient  *http.Client
}

func NewOIDCVerifier(issuer, clientID, clientSecret string, httpClient *http.Client) (*OIDCVerifier, error) {
	if issuer == "" || clientID == "" {
		return nil, ErrOIDCNotConfigured
	}
	issuer = strings.TrimRight(issuer, "/")

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/authorize", issuer),
			TokenURL: fmt.Sprintf("%s/token", issuer),
		},
		Scopes: []string{"openid", "profile", "email"},
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OIDCVerifier{
		config:      config,
		issuer:      issuer,
		userInfoURL: fmt.Sprintf("%s/userinfo", issuer),
		httpClient:  httpClient,
	}, nil
}

type userInfo struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Verify exchanges the credentials for a token and reads the profile. A
// missing userinfo endpoint is tolerated; the login email is used instead.
func (v *OIDCVerifier) Verify(ctx context.Context, email, password string) (ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)

	token, err := v.config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("%w: %v", ErrOIDCRejected, err)
	}

	identity := ExternalIdentity{Email: strings.ToLower(strings.TrimSpace(email))}
	info, err := v.fetchUserInfo(ctx, token)
	if err != nil {
		logger.Log.WithError(err).WithField("issuer", v.issuer).Debug("userinfo unavailable")
		return identity, nil
	}
	if info.Email != "" {
		identity.Email = strings.ToLower(info.Email)
	}
	identity.FirstName = info.GivenName
	identity.LastName = info.FamilyName
	return identity, nil
}

func (v *OIDCVerifier) fetchUserInfo(ctx context.Context, token *oauth2.Token) (userInfo, error) {
	client := v.config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return userInfo{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return userInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return userInfo{}, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}
	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return userInfo{}, err
	}
	return info, nil
}
