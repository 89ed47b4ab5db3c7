package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorado/internal/codec"
	"tutorado/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Key: "anon-key"}, nil)
}

func TestSelectBuildsProjectionAndOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/students", r.URL.Path)
		assert.Equal(t, "id,tutor_id,name", r.URL.Query().Get("select"))
		assert.Equal(t, "date.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		_, _ = io.WriteString(w, `[{"id":"ALU001","tutor_id":"TUT001","name":"João"}]`)
	})

	rows, err := c.Select(context.Background(), store.TableStudents, []string{"id", "tutor_id", "name"}, store.Order{Column: "date", Descending: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TUT001", rows[0]["tutor_id"])
}

func TestGetReturnsNotFoundOnEmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.ALU404", r.URL.Query().Get("id"))
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := c.Get(context.Background(), store.TableStudents, nil, "ALU404")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpsertSendsWholeRowWithConflictKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "id", r.URL.Query().Get("on_conflict"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
		assert.Contains(t, r.Header.Get("Prefer"), "return=representation")

		var body []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body, 1)
		v, ok := body[0]["photo"]
		assert.True(t, ok, "null fields must be sent")
		assert.Nil(t, v)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	})

	stored, err := c.Upsert(context.Background(), store.TableUsers, codec.Row{"id": "TUT003", "name": "Ana", "role": "TUTOR", "photo": nil})
	require.NoError(t, err)
	assert.Equal(t, "TUT003", stored["id"])
}

func TestDeleteFiltersByID(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.ATD1", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Delete(context.Background(), store.TableAttendances, "ATD1"))
	assert.True(t, called)
}

func TestAPIErrorIsDecoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"code":"23505","message":"duplicate key","hint":null}`)
	})

	err := c.Insert(context.Background(), store.TableAccessLogs, codec.Row{"user_id": "ADM001"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "23505", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "duplicate key")
}

func TestPlainTextErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.Select(context.Background(), store.TableUsers, nil, store.Order{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestMissingConfiguration(t *testing.T) {
	c := New(Config{}, nil)
	_, err := c.Select(context.Background(), store.TableUsers, nil, store.Order{})
	assert.True(t, errors.Is(err, store.ErrNotConfigured))
}
