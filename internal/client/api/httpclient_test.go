package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dkurbatov/pocketbank/internal/common"
)

// ---- fake credential store ----

type fakeStore struct {
	token   string
	readErr error
}

func (f *fakeStore) Save(ctx context.Context, token string) error { f.token = token; return nil }
func (f *fakeStore) Read(ctx context.Context) (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.token, nil
}
func (f *fakeStore) Clear(ctx context.Context) error { f.token = ""; return nil }

func newTestClient(t *testing.T, handler http.HandlerFunc, store *fakeStore) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, store, 2*time.Second), srv
}

// ---- tests ----

func TestLogin_Success(t *testing.T) {
	var gotBody map[string]string
	var gotAuth string

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	}, &fakeStore{})

	token, err := c.Login(context.Background(), "alice", "hunter22")
	require.NoError(t, err)
	require.Equal(t, "tok-123", token)
	require.Equal(t, map[string]string{"username": "alice", "password": "hunter22"}, gotBody)
	require.Empty(t, gotAuth)
}

func TestRegister_MultipartForm(t *testing.T) {
	restore := openFile
	openFile = func(path string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("png-bytes")), nil
	}
	defer func() { openFile = restore }()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/register", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "bob", r.FormValue("username"))
		require.Equal(t, "pass1234", r.FormValue("password"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "avatar.png", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "png-bytes", string(data))

		json.NewEncoder(w).Encode(map[string]string{"token": "tok-reg"})
	}, &fakeStore{})

	token, err := c.Register(context.Background(), "bob", "pass1234", "/tmp/avatar.png")
	require.NoError(t, err)
	require.Equal(t, "tok-reg", token)
}

func TestRegister_WithoutImage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("image")
		require.Error(t, err)
		json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
	}, &fakeStore{})

	_, err := c.Register(context.Background(), "bob", "pass1234", "")
	require.NoError(t, err)
}

func TestGetMe_AttachesBearer(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/me", r.URL.Path)
		require.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		io.WriteString(w, `{"id":"u1","username":"alice","balance":100.50}`)
	}, &fakeStore{token: "tok-abc"})

	acc, err := c.GetMe(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u1", acc.ID)
	require.Equal(t, "alice", acc.Username)
	require.True(t, acc.Balance.Equal(decimal.RequireFromString("100.50")))
}

func TestGetMe_NoCredential_NoNetworkCall(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, &fakeStore{readErr: common.ErrNoCredential})

	_, err := c.GetMe(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthenticated)
	require.Zero(t, calls.Load())
}

func TestGetMe_StorageUnavailablePropagates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, &fakeStore{readErr: common.ErrStorageUnavailable})

	_, err := c.GetMe(context.Background())
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestGetMe_ExpiredToken_NoNetworkCall(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	tok, err := expired.SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	var calls atomic.Int64
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, &fakeStore{token: tok})

	_, err = c.GetMe(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthenticated)
	require.Zero(t, calls.Load())
}

func TestGetMe_OpaqueTokenIsSent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer not-a-jwt", r.Header.Get("Authorization"))
		io.WriteString(w, `{"id":"u1","username":"a","balance":0}`)
	}, &fakeStore{token: "not-a-jwt"})

	_, err := c.GetMe(context.Background())
	require.NoError(t, err)
}

func TestListUsers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users", r.URL.Path)
		io.WriteString(w, `[{"id":"u1","username":"alice","balance":10},{"id":"u2","username":"bob","balance":20}]`)
	}, &fakeStore{token: "tok"})

	accs, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, accs, 2)
	require.Equal(t, "bob", accs[1].Username)
}

func TestDeposit_SendsAmountAsNumberWithIdempotencyKey(t *testing.T) {
	keys := map[string]struct{}{}

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/transactions/deposit", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"amount":50.25}`, string(body))
		require.NotContains(t, string(body), `"50.25"`)

		key := r.Header.Get("Idempotency-Key")
		require.NotEmpty(t, key)
		keys[key] = struct{}{}
		w.WriteHeader(http.StatusOK)
	}, &fakeStore{token: "tok"})

	amount := decimal.RequireFromString("50.25")
	require.NoError(t, c.Deposit(context.Background(), amount))
	require.NoError(t, c.Deposit(context.Background(), amount))

	// each submission carries its own key
	require.Len(t, keys, 2)
}

func TestTransfer_Body(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/transactions/transfer", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"amount":5,"toUserId":"u2"}`, string(body))
		w.WriteHeader(http.StatusOK)
	}, &fakeStore{token: "tok"})

	require.NoError(t, c.Transfer(context.Background(), decimal.NewFromInt(5), "u2"))
}

func TestClassification_Unauthorized(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}, &fakeStore{token: "tok"})

		_, err := c.GetMe(context.Background())
		require.ErrorIs(t, err, common.ErrUnauthenticated)
	}
}

func TestClassification_RequestRejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"insufficient funds"}`)
	}, &fakeStore{token: "tok"})

	err := c.Withdraw(context.Background(), decimal.NewFromInt(1000))
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	require.Equal(t, "insufficient funds", reqErr.Message)
}

func TestClassification_RequestRejected_ErrorField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error":"duplicate"}`)
	}, &fakeStore{token: "tok"})

	err := c.Deposit(context.Background(), decimal.NewFromInt(1))
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, "duplicate", reqErr.Message)
}

func TestClassification_RequestRejected_GenericMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}, &fakeStore{token: "tok"})

	err := c.Deposit(context.Background(), decimal.NewFromInt(1))
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusText(http.StatusTeapot), reqErr.Message)
}

func TestClassification_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on

	c := NewHTTPClient(srv.URL, &fakeStore{token: "tok"}, time.Second)
	err := c.Deposit(context.Background(), decimal.NewFromInt(1))
	require.ErrorIs(t, err, common.ErrUnreachable)
}

func TestClassification_Timeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}, &fakeStore{token: "tok"})
	c.http.Timeout = 50 * time.Millisecond

	err := c.Deposit(context.Background(), decimal.NewFromInt(1))
	require.ErrorIs(t, err, common.ErrUnreachable)
}
