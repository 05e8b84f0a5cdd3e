package slack_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"pantrycook/slack"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	resp   *http.Response
	err    error
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return m.resp, m.err
}

func TestNewClient(t *testing.T) {
	webhook := "http://slack.com/webhook"
	client := slack.NewClient(webhook, &mockDoer{})
	must.NotNil(t, client, "expected non-nil client")
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr error
	}{
		{
			name: "success",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
			},
			wantErr: nil,
		},
		{
			name: "failure status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("bad request"))}, nil
			},
			wantErr: fmt.Errorf("failed to post message: 400 Bad Request"),
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: fmt.Errorf("network error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: tt.doFunc})
			err := client.PostMessage(context.Background(), "#general", "Hello, world!")
			should.Equal(t, tt.wantErr, err)
		})
	}
}

func TestPostMessage_Payload(t *testing.T) {
	var got map[string]any
	client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		must.Equal(t, "application/json", req.Header.Get("Content-Type"))
		must.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
	}})

	must.NoError(t, client.PostMessage(context.Background(), "#pantry", "short on eggs"))
	should.Equal(t, "#pantry", got["channel"])
	should.Equal(t, "short on eggs", got["text"])
	should.Equal(t, true, got["mrkdwn"])
}

func TestFormatShortages(t *testing.T) {
	tests := []struct {
		name      string
		shortages []slack.Shortage
		estimated []string
		want      []string
	}{
		{
			name: "nothing short",
			want: []string{"*Omelet*: everything is in the pantry."},
		},
		{
			name: "missing and short",
			shortages: []slack.Shortage{
				{Ingredient: "milk", Missing: true},
				{Ingredient: "flour", Short: 120.5, Unit: "g", Warnings: []string{"No conversion available between cup and pound."}},
			},
			estimated: []string{"eggs"},
			want: []string{
				"*Omelet* is short 2 ingredient(s):",
				"• milk: not in the pantry",
				"• flour: short 120.50 g",
				"_No conversion available between cup and pound._",
				"Estimated conversions used for: eggs",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slack.FormatShortages("Omelet", tt.shortages, tt.estimated)
			for _, w := range tt.want {
				should.Contains(t, got, w)
			}
		})
	}
}
