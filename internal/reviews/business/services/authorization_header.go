package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// AuthEngine подписывает исходящий запрос к внешнему API.
type AuthEngine interface {
	SetAuth(request *http.Request) error
}

// BearerAuth -- статический токен в заголовке Authorization.
type BearerAuth struct {
	apiKey string
}

func NewBearerAuth(apiKey string) *BearerAuth {
	if apiKey == "" {
		return nil
	}
	return &BearerAuth{apiKey: apiKey}
}

func (b *BearerAuth) SetAuth(request *http.Request) error {
	request.Header.Set("Authorization", "Bearer "+b.apiKey)
	return nil
}

// ServiceAccountAuth обменивает подписанный JWT-ассертион сервисного аккаунта
// Google на access token и кеширует его до истечения срока. Токен-рефреш
// потокобезопасен: юниты ходят к API конкурентно.
type ServiceAccountAuth struct {
	clientEmail string
	tokenURI    string
	privateKey  interface{}
	scope       string
	client      *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

func NewServiceAccountAuth(keyFile, scope string) (*ServiceAccountAuth, error) {
	raw, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("reading service account key: %w", err)
	}
	var key serviceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key %s: client_email or private_key missing", keyFile)
	}
	pk, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parsing service account private key: %w", err)
	}
	tokenURI := key.TokenURI
	if tokenURI == "" {
		tokenURI = "https://oauth2.googleapis.com/token"
	}
	return &ServiceAccountAuth{
		clientEmail: key.ClientEmail,
		tokenURI:    tokenURI,
		privateKey:  pk,
		scope:       scope,
		client:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (a *ServiceAccountAuth) SetAuth(request *http.Request) error {
	token, err := a.accessToken(request.Context())
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (a *ServiceAccountAuth) accessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// запас в минуту, чтобы не уйти в API с почти истёкшим токеном
	if a.token != "" && time.Now().Add(time.Minute).Before(a.expires) {
		return a.token, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   a.clientEmail,
		"scope": a.scope,
		"aud":   a.tokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing token assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange: unexpected status code: %s", resp.Status)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token exchange: empty access_token")
	}

	a.token = body.AccessToken
	a.expires = now.Add(time.Duration(body.ExpiresIn) * time.Second)
	return a.token, nil
}

// AppStoreTokenAuth подписывает запросы короткоживущим ES256 JWT по ключу
// App Store Connect. Токен переиспользуется, пока не истёк.
type AppStoreTokenAuth struct {
	keyID      string
	issuerID   string
	privateKey interface{}

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewAppStoreTokenAuth(keyID, issuerID, keyFile string) (*AppStoreTokenAuth, error) {
	raw, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("reading appstore key: %w", err)
	}
	pk, err := jwt.ParseECPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing appstore private key: %w", err)
	}
	return &AppStoreTokenAuth{keyID: keyID, issuerID: issuerID, privateKey: pk}, nil
}

func (a *AppStoreTokenAuth) SetAuth(request *http.Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == "" || !time.Now().Add(time.Minute).Before(a.expires) {
		now := time.Now()
		expires := now.Add(15 * time.Minute)
		token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
			"iss": a.issuerID,
			"iat": now.Unix(),
			"exp": expires.Unix(),
			"aud": "appstoreconnect-v1",
		})
		token.Header["kid"] = a.keyID
		signed, err := token.SignedString(a.privateKey)
		if err != nil {
			return fmt.Errorf("signing appstore token: %w", err)
		}
		a.token = signed
		a.expires = expires
	}

	request.Header.Set("Authorization", "Bearer "+a.token)
	return nil
}
