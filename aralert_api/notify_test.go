package aralert_api

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeMessage(t *testing.T) {
	message := ComposeMessage(Alert{Sample: "S1", Classes: []string{"fluoroquinolone", "tetracycline"}})
	assert.Equal(t, "Possible AR genes found in sample S1. Strain may resist:\n fluoroquinolone,\ntetracycline.", message)

	assert.Equal(t, "No AR genes found in sample S1.", ComposeMessage(Alert{Sample: "S1"}))
}

func TestComposeBody(t *testing.T) {
	body := ComposeBody(Alert{Sample: "S1", Classes: []string{"fluoroquinolone"}, RunID: "run-1"}, "report@example.org")
	assert.Contains(t, body, "detected in sample S1")
	assert.Contains(t, body, "  - Fluoroquinolone\n")
	assert.Contains(t, body, "Run: run-1")
	assert.Contains(t, body, "Contact us at: report@example.org")

	clean := ComposeBody(Alert{Sample: "S1"}, "")
	assert.Contains(t, clean, "No resistances were detected in sample S1.")
	assert.NotContains(t, clean, "Contact us")
}

func TestSMSNotifier(t *testing.T) {
	var received []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "key", r.PostForm.Get("api_key"))
		assert.Equal(t, "secret", r.PostForm.Get("api_secret"))
		assert.Equal(t, "DNAmazing", r.PostForm.Get("from"))
		assert.Equal(t, "run-1", r.PostForm.Get("client-ref"))
		received = append(received, r.PostForm.Get("to")+": "+r.PostForm.Get("text"))
		fmt.Fprint(w, `{"message-count":"1","messages":[{"status":"0"}]}`)
	}))
	defer server.Close()

	notifier := NewSMSNotifier(SMSConfig{
		Endpoint: server.URL,
		Key:      "key",
		Secret:   "secret",
		From:     "DNAmazing",
		To:       []string{"111", "222"},
	})
	err := notifier.Notify(context.Background(), Alert{RunID: "run-1", Sample: "S1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"111: No AR genes found in sample S1.", "222: No AR genes found in sample S1."}, received)
}

func TestSMSNotifierFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"rejected", http.StatusOK, `{"messages":[{"status":"2","error-text":"Missing to param"}]}`, "Missing to param"},
		{"no status", http.StatusOK, `{"messages":[]}`, "no message status"},
		{"http error", http.StatusUnauthorized, `unauthorized`, "HTTP 401"},
		{"bad json", http.StatusOK, `<html>`, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			notifier := NewSMSNotifier(SMSConfig{Endpoint: server.URL, Key: "k", To: []string{"111"}})
			err := notifier.Notify(context.Background(), Alert{Sample: "S1"})
			assert.ErrorContains(t, err, tt.message)
		})
	}
}

func TestEmailNotifier(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "S1.csv")
	require.NoError(t, os.WriteFile(reportPath, []byte("Gene,Gene Description,Read Count\ngeneA,desc,3\n"), 0o644))

	var (
		sentAddr string
		sentFrom string
		sentTo   []string
		sent     []byte
	)
	notifier := NewEmailNotifier(EmailConfig{
		Host:         "smtp.example.org",
		Port:         587,
		Username:     "report@example.org",
		Password:     "pw",
		From:         "report@example.org",
		To:           []string{"lab@example.org"},
		AttachReport: true,
	})
	notifier.sendMail = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		sentAddr, sentFrom, sentTo, sent = addr, from, to, msg
		assert.NotNil(t, auth)
		return nil
	}

	alert := Alert{Sample: "S1", Classes: []string{"fluoroquinolone"}, ReportPath: reportPath}
	require.NoError(t, notifier.Notify(context.Background(), alert))
	assert.Equal(t, "smtp.example.org:587", sentAddr)
	assert.Equal(t, "report@example.org", sentFrom)
	assert.Equal(t, []string{"lab@example.org"}, sentTo)

	message, err := mail.ReadMessage(bytes.NewReader(sent))
	require.NoError(t, err)
	subject, err := new(mime.WordDecoder).DecodeHeader(message.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "AR detection report for S1: 1 antibiotic classes", subject)

	mediaType, params, err := mime.ParseMediaType(message.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(message.Body, params["boundary"])
	text, err := reader.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(text)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Fluoroquinolone")

	attachment, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "S1.csv", attachment.FileName())
	encoded, err := io.ReadAll(attachment)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "geneA,desc,3")

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEmailNotifierWithoutAttachment(t *testing.T) {
	var sent []byte
	notifier := NewEmailNotifier(EmailConfig{Host: "localhost", Port: 25, From: "a@b", To: []string{"c@d"}})
	notifier.sendMail = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		assert.Nil(t, auth)
		sent = msg
		return nil
	}

	require.NoError(t, notifier.Notify(context.Background(), Alert{Sample: "S1", ReportPath: "ignored.csv"}))
	assert.Contains(t, string(sent), "No resistances were detected in sample S1.")
	assert.NotContains(t, string(sent), "attachment")
}

func TestEmailNotifierCancelled(t *testing.T) {
	notifier := NewEmailNotifier(EmailConfig{Host: "localhost", To: []string{"c@d"}})
	notifier.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("mail must not be sent")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, notifier.Notify(ctx, Alert{Sample: "S1"}), context.Canceled)
}

type recordingNotifier struct {
	name   string
	err    error
	alerts []Alert
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(ctx context.Context, alert Alert) error {
	r.alerts = append(r.alerts, alert)
	return r.err
}

func TestMultiNotifier(t *testing.T) {
	failing := &recordingNotifier{name: "sms", err: errors.New("gateway down")}
	working := &recordingNotifier{name: "email"}
	multi := MultiNotifier{failing, working}

	assert.Equal(t, "sms,email", multi.Name())
	err := multi.Notify(context.Background(), Alert{Sample: "S1", ReportPath: "S1.csv"})
	assert.ErrorContains(t, err, "sms: gateway down")
	assert.Len(t, failing.alerts, 1)
	assert.Len(t, working.alerts, 1)
}

func TestEmailComposeDate(t *testing.T) {
	notifier := NewEmailNotifier(EmailConfig{From: "a@b", To: []string{"c@d"}})
	date := time.Date(2017, 4, 30, 9, 33, 0, 0, time.UTC)
	message, err := notifier.compose(Alert{Sample: "S1"}, date)
	require.NoError(t, err)
	assert.Contains(t, string(message), "Date: Sun, 30 Apr 2017 09:33:00 +0000\r\n")
}
