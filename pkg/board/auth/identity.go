package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/simple-board/pkg/board"
)

// IdentityProvider authenticates email/password accounts held outside the
// board's own store.
type IdentityProvider interface {
	// SignInWithPassword returns the account uid, or ErrInvalidCredentials
	SignInWithPassword(ctx context.Context, email, password string) (string, error)
	// CreateAccount registers a new account and returns its uid, or ErrEmailExists
	CreateAccount(ctx context.Context, email, password, name string) (string, error)
}

// DefaultFirebaseEndpoint is the Identity Toolkit REST base URL.
const DefaultFirebaseEndpoint = "https://identitytoolkit.googleapis.com/v1"

// FirebaseConfig configures the Identity Toolkit client
type FirebaseConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// FirebaseProvider talks to the Firebase Authentication REST API.
type FirebaseProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewFirebaseProvider creates a provider for the project owning cfg.APIKey
func NewFirebaseProvider(cfg FirebaseConfig) (*FirebaseProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("firebase web api key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultFirebaseEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &FirebaseProvider{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type firebaseAccountResponse struct {
	LocalID string `json:"localId"`
}

type firebaseErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (string, error) {
	var resp firebaseAccountResponse
	err := p.call(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.LocalID, nil
}

func (p *FirebaseProvider) CreateAccount(ctx context.Context, email, password, name string) (string, error) {
	var resp firebaseAccountResponse
	err := p.call(ctx, "accounts:signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"displayName":       name,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.LocalID, nil
}

func (p *FirebaseProvider) call(ctx context.Context, method string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	target := fmt.Sprintf("%s/%s?key=%s", p.endpoint, method, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &board.UpstreamError{Service: "identity", Op: method, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var fbErr firebaseErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&fbErr)
		return classifyFirebaseError(method, resp.StatusCode, fbErr.Error.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &board.UpstreamError{Service: "identity", Op: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// classifyFirebaseError maps Identity Toolkit error codes; messages may carry
// a " : detail" suffix.
func classifyFirebaseError(method string, status int, message string) error {
	code, _, _ := strings.Cut(message, " ")
	switch code {
	case "EMAIL_EXISTS":
		return ErrEmailExists
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_EMAIL", "MISSING_PASSWORD":
		return ErrInvalidCredentials
	case "WEAK_PASSWORD":
		return board.NewValidationError("password", message)
	}
	if method == "accounts:signInWithPassword" && status < http.StatusInternalServerError {
		return ErrInvalidCredentials
	}
	return &board.UpstreamError{Service: "identity", Op: method, Err: fmt.Errorf("status %d: %s", status, message)}
}
