package platform

import (
	"context"
	"net/url"
)

// API paths.
const (
	PathToken        = "/cgi-bin/token"
	PathUserInfo     = "/cgi-bin/user/info"
	PathMediaUpload  = "/cgi-bin/media/upload"
	PathOAuthToken   = "/sns/oauth2/access_token"
	PathOAuthRefresh = "/sns/oauth2/refresh_token"
	PathOAuthUser    = "/sns/userinfo"
	PathOAuthCheck   = "/sns/auth"
	pathAuthorize    = "/connect/oauth2/authorize"
)

// OAuth scopes.
const (
	ScopeBase     = "snsapi_base"
	ScopeUserInfo = "snsapi_userinfo"
)

// AccessTokenResponse is the body of /cgi-bin/token.
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// OAuthTokenResponse is the body of the code exchange and refresh calls.
type OAuthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	OpenID       string `json:"openid"`
	Scope        string `json:"scope"`
	UnionID      string `json:"unionid,omitempty"`
}

// UserProfile is a user's public profile. Fields absent for a given call
// stay empty.
type UserProfile struct {
	Subscribe     int      `json:"subscribe,omitempty"`
	OpenID        string   `json:"openid"`
	Nickname      string   `json:"nickname,omitempty"`
	Sex           int      `json:"sex,omitempty"`
	Language      string   `json:"language,omitempty"`
	City          string   `json:"city,omitempty"`
	Province      string   `json:"province,omitempty"`
	Country       string   `json:"country,omitempty"`
	HeadImgURL    string   `json:"headimgurl,omitempty"`
	SubscribeTime int64    `json:"subscribe_time,omitempty"`
	Privilege     []string `json:"privilege,omitempty"`
	UnionID       string   `json:"unionid,omitempty"`
	Remark        string   `json:"remark,omitempty"`
}

// MediaUploadResponse is the body of a temporary media upload.
type MediaUploadResponse struct {
	Type      string `json:"type"`
	MediaID   string `json:"media_id"`
	CreatedAt int64  `json:"created_at"`
}

// FetchAccessToken requests an application access token.
func (c *Client) FetchAccessToken(ctx context.Context, appID, secret string) (*AccessTokenResponse, error) {
	q := url.Values{}
	q.Set("grant_type", "client_credential")
	q.Set("appid", appID)
	q.Set("secret", secret)

	var out AccessTokenResponse
	if err := c.Get(ctx, PathToken, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExchangeCode trades a one-time authorization code for a user token.
func (c *Client) ExchangeCode(ctx context.Context, appID, secret, code string) (*OAuthTokenResponse, error) {
	q := url.Values{}
	q.Set("appid", appID)
	q.Set("secret", secret)
	q.Set("code", code)
	q.Set("grant_type", "authorization_code")

	var out OAuthTokenResponse
	if err := c.Get(ctx, PathOAuthToken, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshUserToken renews a user token with its refresh token.
func (c *Client) RefreshUserToken(ctx context.Context, appID, refreshToken string) (*OAuthTokenResponse, error) {
	q := url.Values{}
	q.Set("appid", appID)
	q.Set("grant_type", "refresh_token")
	q.Set("refresh_token", refreshToken)

	var out OAuthTokenResponse
	if err := c.Get(ctx, PathOAuthRefresh, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OAuthUserInfo fetches the profile of the user a token was issued for.
func (c *Client) OAuthUserInfo(ctx context.Context, userToken, openID, lang string) (*UserProfile, error) {
	q := url.Values{}
	q.Set("access_token", userToken)
	q.Set("openid", openID)
	if lang != "" {
		q.Set("lang", lang)
	}

	var out UserProfile
	if err := c.Get(ctx, PathOAuthUser, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckUserToken verifies a user token is still accepted.
func (c *Client) CheckUserToken(ctx context.Context, userToken, openID string) error {
	q := url.Values{}
	q.Set("access_token", userToken)
	q.Set("openid", openID)
	return c.Get(ctx, PathOAuthCheck, q, nil)
}

// AuthorizeURL builds the browser redirect that starts web authorization.
func (c *Client) AuthorizeURL(appID, redirectURI, scope, state string) string {
	if scope == "" {
		scope = ScopeBase
	}
	q := url.Values{}
	q.Set("appid", appID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", scope)
	q.Set("state", state)
	return c.openURL + pathAuthorize + "?" + q.Encode() + "#wechat_redirect"
}
