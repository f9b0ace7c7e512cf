package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DCAPilot/internal/model"
)

func TestTelegram_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tn := NewTelegram("TOKEN", "42", "")
	tn.BaseURL = srv.URL
	require.NoError(t, tn.Send("hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestTelegram_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"ok":false}`)
	}))
	defer srv.Close()

	tn := NewTelegram("TOKEN", "42", "")
	tn.BaseURL = srv.URL
	assert.ErrorContains(t, tn.Send("hello"), "status 401")
}

func TestTelegram_SendRejectedWithOK200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer srv.Close()

	tn := NewTelegram("TOKEN", "42", "")
	tn.BaseURL = srv.URL
	assert.ErrorContains(t, tn.Send("hello"), "chat not found")
}

func TestTelegram_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	tn := NewTelegram("SECRET-TOKEN", "42", "")
	tn.BaseURL = srv.URL
	err := tn.Send("hello")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-TOKEN")
}

func TestTelegram_GetUpdatesSendsOffset(t *testing.T) {
	var got getUpdatesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		io.WriteString(w, `{"ok":true,"result":[{"update_id":9,"message":{"text":"/status","chat":{"id":42}}}]}`)
	}))
	defer srv.Close()

	tn := NewTelegram("TOKEN", "42", "")
	tn.BaseURL = srv.URL
	updates, err := tn.getUpdates(context.Background(), tn.Client, 5)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, 5, got.Offset)
	assert.Equal(t, 30, got.Timeout)
}

type failingSender struct{ calls int }

func (f *failingSender) Send(string) error {
	f.calls++
	return errors.New("network down")
}

func TestBestEffort_SwallowsErrorsWithoutRetry(t *testing.T) {
	s := &failingSender{}
	n := NewBestEffort(s, zerolog.Nop())
	assert.NotPanics(t, func() { n.Notify("x") })
	assert.Equal(t, 1, s.calls)
}

func TestStartPolling_HandlesOnlyConfiguredChat(t *testing.T) {
	var mu sync.Mutex
	var replies []string
	served := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			mu.Lock()
			first := !served
			served = true
			mu.Unlock()
			if first {
				io.WriteString(w, `{"ok":true,"result":[
					{"update_id":1,"message":{"text":"/status","chat":{"id":42}}},
					{"update_id":2,"message":{"text":"/run","chat":{"id":7}}}]}`)
				return
			}
			io.WriteString(w, `{"ok":true,"result":[]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var p map[string]string
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &p)
			mu.Lock()
			replies = append(replies, p["text"])
			mu.Unlock()
			io.WriteString(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	tn := NewTelegram("TOKEN", "42", "")
	tn.BaseURL = srv.URL

	var handled []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tn.StartPolling(ctx, func(cmd string) string {
			handled = append(handled, cmd)
			cancel()
			return "ok " + cmd
		}, zerolog.Nop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("polling did not stop")
	}
	assert.Equal(t, []string{"/status"}, handled)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ok /status"}, replies)
}

func TestFormatters(t *testing.T) {
	res := &model.Resolution{
		Primary:  "USDT",
		Required: decimalOf("13"),
		Final:    decimalOf("4.5"),
		Steps: []model.FundingStep{
			{Kind: model.StepRedeem, Coin: "USDT", Amount: decimalOf("10"), OK: false},
			{Kind: model.StepSkip, Coin: "USDC", Note: "nothing <redeemable>"},
		},
	}
	msg := FormatInsufficient(res)
	assert.Contains(t, msg, "Insufficient funds")
	assert.Contains(t, msg, "short 8.50")
	assert.Contains(t, msg, "&lt;redeemable&gt;")

	assert.Equal(t, "❌ redeem USDT: a &lt; b", Failure("redeem USDT", errors.New("a < b")))
	assert.Contains(t, FormatRunState(&model.RunState{}), "No run recorded yet")
	assert.Equal(t, "📊 No trades recorded yet.", FormatPnL(nil, "USDT"))
}
