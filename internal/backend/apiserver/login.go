package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"qedit/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Msg   string `json:"msg"`
}

// Login exchanges a username and password for a bearer token. The expiry is
// taken from the token's exp claim when present; the signature is not
// verified here, the server does that on every request.
func Login(ctx context.Context, httpClient *http.Client, baseURL, username, password string) (*oauth2.Token, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	payload, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"login", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, wrapError(err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", service.ErrUnauthorized, loginMessage(apiErr.Body))
		}
		return nil, wrapError(err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var lr loginResponse
	if err := json.Unmarshal(data, &lr); err != nil {
		return nil, fmt.Errorf("invalid login response: %w", err)
	}
	if lr.Token == "" {
		return nil, errors.New("invalid login response: no token")
	}

	tok := &oauth2.Token{AccessToken: lr.Token, TokenType: "Bearer"}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(lr.Token, claims); err == nil && claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time
	}
	return tok, nil
}

func loginMessage(body string) string {
	var lr loginResponse
	if err := json.Unmarshal([]byte(body), &lr); err == nil && lr.Msg != "" {
		return lr.Msg
	}
	return strings.TrimSpace(body)
}
