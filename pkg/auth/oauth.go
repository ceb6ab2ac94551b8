// Package auth obtains the credentials the planner needs: a Google OAuth token
// for the calendar mirror and a bearer token for the planner API.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// ClientSecretsFile is the Google API credentials.json, looked up in the
	// planner config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile holds the user's access and refresh token.
	TokenFile = "token.json"

	// LocalhostAuthPort receives the OAuth redirect.
	LocalhostAuthPort = "6789"

	authTimeout = 5 * time.Minute
)

// CalendarScopes are the scopes the calendar mirror asks for.
var CalendarScopes = []string{
	calendar.CalendarEventsScope,
	calendar.CalendarReadonlyScope,
}

// GetConfig reads credentials.json from dir and pins its redirect URL to the
// local callback listener.
func GetConfig(dir string, scopes []string, logger *zap.Logger) (*oauth2.Config, error) {
	clientSecretsFile := filepath.Join(dir, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = redirectURL(config.RedirectURL, logger)
	return config, nil
}

func redirectURL(configured string, logger *zap.Logger) string {
	fallback := fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	if configured == "" || configured == "urn:ietf:wg:oauth:2.0:oob" {
		return fallback
	}

	parsed, err := url.Parse(configured)
	if err != nil {
		logger.Warn("could not parse redirect url, using it as is", zap.String("url", configured), zap.Error(err))
		return configured
	}
	if parsed.Hostname() != "localhost" && parsed.Hostname() != "127.0.0.1" {
		logger.Warn("redirect url is not a localhost callback", zap.String("url", configured))
		return configured
	}
	if parsed.Port() != LocalhostAuthPort {
		parsed.Host = net.JoinHostPort(parsed.Hostname(), LocalhostAuthPort)
	}
	return parsed.String()
}

// GetClient returns an *http.Client authorized for scopes. It reuses the token
// in dir, runs the browser flow when there is none and saves refreshed tokens.
func GetClient(ctx context.Context, dir string, scopes []string, logger *zap.Logger) (*http.Client, error) {
	config, err := GetConfig(dir, scopes, logger)
	if err != nil {
		return nil, err
	}

	tokenFile := filepath.Join(dir, TokenFile)
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		logger.Info("no stored token, starting web authorization", zap.String("path", tokenFile))
		tok, err = getTokenFromWeb(ctx, config, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	src := &savingTokenSource{
		base:   config.TokenSource(ctx, tok),
		path:   tokenFile,
		last:   tok,
		logger: logger,
	}
	return oauth2.NewClient(ctx, src), nil
}

// savingTokenSource writes the token back whenever a refresh changes it.
type savingTokenSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	path   string
	last   *oauth2.Token
	logger *zap.Logger
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := saveToken(s.path, tok); err != nil {
			s.logger.Warn("could not save refreshed token", zap.Error(err))
		} else {
			s.last = tok
		}
	}
	return tok, nil
}

func getTokenFromWeb(ctx context.Context, config *oauth2.Config, logger *zap.Logger) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler:      callbackHandler(codeCh, errCh),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Open the following URL in your browser to authorize planner:\n%s\n", authURL)
	logger.Info("waiting for authorization code", zap.String("redirect", config.RedirectURL))

	select {
	case code := <-codeCh:
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authorization timed out, please try again")
	}
}

func callbackHandler(codeCh chan<- string, errCh chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Authorization code not found", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
			default:
			}
			return
		}
		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		select {
		case codeCh <- code:
		default:
		}
	})
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// GetCalendarService creates an authenticated Google Calendar service.
func GetCalendarService(ctx context.Context, dir string, logger *zap.Logger) (*calendar.Service, error) {
	client, err := GetClient(ctx, dir, CalendarScopes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client for Calendar API: %w", err)
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google Calendar service: %w", err)
	}
	return srv, nil
}

// APIClient returns an *http.Client for the planner API. A non-empty token is
// sent as a bearer token on every request.
func APIClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	var hc *http.Client
	if token == "" {
		hc = &http.Client{}
	} else {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	}
	hc.Timeout = timeout
	return hc
}
