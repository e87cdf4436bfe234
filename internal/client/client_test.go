package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dms-object-service/internal/adapters/primary/http/dto"
	"dms-object-service/internal/core/domain"
)

func TestClient_Delete(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/dms/deletions", r.URL.Path)
		assert.Equal(t, "alice", r.Header.Get("X-User-ID"))

		var req dto.DeleteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"C1", "C2"}, req.IDs)
		assert.Equal(t, "cleanup", req.Reason)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(dto.DeleteResponse{DeletionID: &id})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "alice", time.Second)
	resp, err := c.Delete(context.Background(), []string{"C1", "C2"}, "cleanup")
	require.NoError(t, err)
	require.NotNil(t, resp.DeletionID)
	assert.Equal(t, id, *resp.DeletionID)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"operation DELETE is not allowed because data set D1 is frozen"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, "alice", time.Second).Revert(context.Background(), uuid.NewString())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.True(t, apiErr.UserError())
	assert.Contains(t, apiErr.Error(), "data set D1 is frozen")
}

func TestClient_ListAndFreeze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/dms/deletions":
			assert.Equal(t, "ACTIVE", r.URL.Query().Get("status"))
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_ = json.NewEncoder(w).Encode(dto.ListDeletionsResponse{Total: 1, Items: []dto.DeletionResponse{{Reason: "x"}}})
		case "/api/v1/dms/entities/S1/freeze":
			var req dto.FreezeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.True(t, req.Frozen)
			assert.True(t, req.FrozenForDataSets)
			_ = json.NewEncoder(w).Encode(dto.EntityResponse{ID: "S1", Freeze: req.ToFlags()})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	c := New(srv.URL, "admin", time.Second)

	list, err := c.ListDeletions(context.Background(), "ACTIVE", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	e, err := c.Freeze(context.Background(), "S1", domain.FreezeFlags{Frozen: true, FrozenForDataSets: true})
	require.NoError(t, err)
	assert.True(t, e.Freeze.FrozenForDataSets)

	_, err = c.GetEntity(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
