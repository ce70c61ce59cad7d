package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dkurbatov/pocketbank/internal/client/credstore"
	"github.com/dkurbatov/pocketbank/internal/client/models"
	"github.com/dkurbatov/pocketbank/internal/common"
)

// The backend consumes amounts as JSON numbers, not strings.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// idempotencyKeyHeader carries a client-generated key so a mutation
// retried after a client-side timeout cannot double-apply.
const idempotencyKeyHeader = "Idempotency-Key"

// openFile is a test seam for the register image upload.
var openFile = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// HTTPClient talks to the backend over HTTP/JSON. All requests share a
// bounded timeout; a request exceeding it surfaces as ErrUnreachable.
type HTTPClient struct {
	baseURL string
	store   credstore.Store
	http    *http.Client
}

func NewHTTPClient(baseURL string, store credstore.Store, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		store:   store,
		http:    &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	ToUserID string          `json:"toUserId"`
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	var resp tokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", loginRequest{Username: username, Password: password}, false, "", &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Register creates a new account via a multipart form: username,
// password and an optional image part. The server answers with a token,
// so registration doubles as login.
func (c *HTTPClient) Register(ctx context.Context, username, password, imagePath string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("username", username); err != nil {
		return "", err
	}
	if err := w.WriteField("password", password); err != nil {
		return "", err
	}
	if imagePath != "" {
		f, err := openFile(imagePath)
		if err != nil {
			return "", fmt.Errorf("open image: %w", err)
		}
		part, err := w.CreateFormFile("image", filepath.Base(imagePath))
		if err != nil {
			f.Close()
			return "", err
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return "", err
		}
		f.Close()
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	var resp tokenResponse
	err := c.doRaw(ctx, http.MethodPost, "/api/auth/register", &body, w.FormDataContentType(), false, "", &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *HTTPClient) GetMe(ctx context.Context) (*models.Account, error) {
	var acc models.Account
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, true, "", &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]*models.Account, error) {
	var accs []*models.Account
	if err := c.doJSON(ctx, http.MethodGet, "/api/users", nil, true, "", &accs); err != nil {
		return nil, err
	}
	return accs, nil
}

func (c *HTTPClient) Deposit(ctx context.Context, amount decimal.Decimal) error {
	return c.doJSON(ctx, http.MethodPost, "/api/transactions/deposit", amountRequest{Amount: amount}, true, uuid.NewString(), nil)
}

func (c *HTTPClient) Withdraw(ctx context.Context, amount decimal.Decimal) error {
	return c.doJSON(ctx, http.MethodPost, "/api/transactions/withdraw", amountRequest{Amount: amount}, true, uuid.NewString(), nil)
}

func (c *HTTPClient) Transfer(ctx context.Context, amount decimal.Decimal, toUserID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/transactions/transfer", transferRequest{Amount: amount, ToUserID: toUserID}, true, uuid.NewString(), nil)
}

// doJSON marshals body (when non-nil) and performs the request.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, requiresAuth bool, idempotencyKey string, out any) error {
	var r io.Reader
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.doRaw(ctx, method, path, r, contentType, requiresAuth, idempotencyKey, out)
}

// doRaw performs one request and classifies the outcome:
// 2xx with decoded body; 401/403 -> ErrUnauthenticated; other non-2xx ->
// *RequestError; transport failure or timeout -> ErrUnreachable.
func (c *HTTPClient) doRaw(ctx context.Context, method, path string, body io.Reader, contentType string, requiresAuth bool, idempotencyKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if idempotencyKey != "" {
		req.Header.Set(idempotencyKeyHeader, idempotencyKey)
	}

	if requiresAuth {
		token, err := c.store.Read(ctx)
		if err != nil {
			if errors.Is(err, common.ErrNoCredential) {
				return common.ErrUnauthenticated
			}
			return err
		}
		if tokenExpired(token) {
			return common.ErrUnauthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", common.ErrUnreachable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return common.ErrUnauthenticated

	default:
		return &RequestError{StatusCode: resp.StatusCode, Message: serverMessage(respBody, resp.StatusCode)}
	}
}

// serverMessage extracts the message/error field from an error body,
// falling back to the generic status text.
func serverMessage(body []byte, statusCode int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return http.StatusText(statusCode)
}

// tokenExpired reports whether the stored token carries an exp claim in
// the past. The token is treated as opaque: signature is not verified
// here, and tokens that do not parse as JWTs are sent as-is for the
// server to judge.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
