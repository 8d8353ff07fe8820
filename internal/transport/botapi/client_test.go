package botapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMe(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/bot42:xyz/getMe", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"Alerts","username":"alerts_bot"}}`))
	}))
	defer srv.Close()

	u, err := New(srv.URL, srv.Client()).GetMe(context.Background(), "42:xyz")
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
	assert.True(t, u.IsBot)
	assert.Equal(t, "alerts_bot", u.Username)
}

func TestSendMessage_PostsJSON(t *testing.T) {
	t.Parallel()
	got := make(chan SendMessage, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bot42:xyz/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var msg SendMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		got <- msg
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	err := New(srv.URL+"/", srv.Client()).SendMessage(context.Background(), " 42:xyz ", SendMessage{
		ChatID:    "-100",
		Text:      "<b>hi</b>",
		ParseMode: "HTML",
	})
	require.NoError(t, err)
	msg := <-got
	assert.Equal(t, "-100", msg.ChatID)
	assert.Equal(t, "<b>hi</b>", msg.Text)
	assert.Equal(t, "HTML", msg.ParseMode)
}

func TestSendMessage_NotOKIsAPIError(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		status int
		body   string
		desc   string
	}{
		{"ok false", http.StatusOK, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`, "Bad Request: chat not found"},
		{"http 401", http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`, "Unauthorized"},
		{"garbage 502", http.StatusBadGateway, `<html>bad gateway</html>`, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				_, _ = w.Write([]byte(c.body))
			}))
			defer srv.Close()

			err := New(srv.URL, srv.Client()).SendMessage(context.Background(), "t", SendMessage{ChatID: "1", Text: "x"})
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "err = %v", err)
			assert.Equal(t, "sendMessage", apiErr.Method)
			assert.Equal(t, c.status, apiErr.Status)
			assert.Equal(t, c.desc, apiErr.Description)
		})
	}
}

func TestEmptyTokenMakesNoRequest(t *testing.T) {
	t.Parallel()
	c := New("", doerFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("unexpected request")
		return nil, nil
	}))
	_, err := c.GetMe(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyToken)
	assert.ErrorIs(t, c.SendMessage(context.Background(), "", SendMessage{}), ErrEmptyToken)
}

func TestTransportErrorRedactsToken(t *testing.T) {
	t.Parallel()
	cause := errors.New("dial tcp: lookup failed")
	c := New("", doerFunc(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "https", r.URL.Scheme)
		assert.Equal(t, DefaultHost, r.URL.Host)
		return nil, errors.New(`Post "` + r.URL.String() + `": ` + cause.Error())
	}))

	err := c.SendMessage(context.Background(), "999:secret", SendMessage{ChatID: "1", Text: "x"})
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "999:secret"), err.Error())
	assert.Contains(t, err.Error(), "<redacted>")
}

func TestContextCancelAborts(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(srv.URL, srv.Client()).SendMessage(ctx, "42:xyz", SendMessage{ChatID: "1", Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestBaseURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://api.telegram.org", BaseURL(""))
	assert.Equal(t, "https://bot.example.com", BaseURL(" bot.example.com/ "))
	assert.Equal(t, "http://127.0.0.1:8081", BaseURL("http://127.0.0.1:8081/"))
}
