package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dms-object-service/internal/adapters/primary/http/dto"
	"dms-object-service/internal/adapters/secondary/archive"
	"dms-object-service/internal/adapters/secondary/memory"
	"dms-object-service/internal/core/services"
	"dms-object-service/internal/testutil"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	roles := new(testutil.MockRoleResolver)
	roles.Grant("admin", testutil.InstanceAdmin)
	roles.Grant("lab-power", testutil.SpacePowerUser("LAB"))
	roles.Grant("observer", testutil.SpaceObserver("LAB"))
	roles.Grant("stranger")

	h := New(
		services.NewEntityService(store, roles, nil),
		services.NewDeletionService(store, roles, archive.NewMemory(), nil),
		services.NewContentCopyService(store, roles, nil),
	)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1/dms"))

	seed := []dto.CreateEntityRequest{
		{ID: "LAB", Code: "LAB", Kind: "space"},
		{ID: "S1", Code: "S1", Kind: "sample", OwnerID: "LAB"},
		{ID: "C1", Code: "C1", Kind: "data_set", DataSetKind: "container", OwnerID: "S1"},
		{ID: "D1", Code: "D1", Kind: "data_set", OwnerID: "S1", ContainerIDs: []string{"C1"}},
		{ID: "L1", Code: "L1", Kind: "data_set", DataSetKind: "link", OwnerID: "S1"},
	}
	for _, req := range seed {
		w := do(r, http.MethodPost, "/api/v1/dms/entities", "admin", req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	return r
}

func do(r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestMissingUserID(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodGet, "/api/v1/dms/entities", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "X-User-ID")
}

func TestEntities(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodGet, "/api/v1/dms/entities/D1", "observer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	e := decode[dto.EntityResponse](t, w)
	assert.Equal(t, "LAB", e.SpaceCode)
	assert.Equal(t, []string{"C1"}, e.ContainerIDs)

	w = do(r, http.MethodGet, "/api/v1/dms/entities?kind=data_set", "observer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[dto.ListEntitiesResponse](t, w)
	assert.Equal(t, 3, list.Total)

	w = do(r, http.MethodGet, "/api/v1/dms/entities", "stranger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[dto.ListEntitiesResponse](t, w).Total)

	desc := "raw reads"
	w = do(r, http.MethodPatch, "/api/v1/dms/entities/D1", "lab-power", dto.UpdateEntityRequest{Description: &desc})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "raw reads", decode[dto.EntityResponse](t, w).Description)

	w = do(r, http.MethodPatch, "/api/v1/dms/entities/D1", "observer", dto.UpdateEntityRequest{Description: &desc})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/api/v1/dms/entities", "admin", dto.CreateEntityRequest{Code: "LAB", Kind: "space"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/v1/dms/entities", "admin", dto.CreateEntityRequest{Code: "X", Kind: "planet"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/dms/entities/NOPE", "admin", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRevertLifecycle(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/dms/deletions", "lab-power", dto.DeleteRequest{IDs: []string{"C1"}, Reason: "cleanup"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.DeleteResponse](t, w)
	require.NotNil(t, created.DeletionID)
	path := "/api/v1/dms/deletions/" + created.DeletionID.String()

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/dms/entities/D1", "admin", nil).Code)

	w = do(r, http.MethodGet, path, "lab-power", nil)
	require.Equal(t, http.StatusOK, w.Code)
	set := decode[dto.DeletionResponse](t, w)
	assert.Equal(t, "ACTIVE", set.Status)
	assert.ElementsMatch(t, []string{"C1", "D1"}, set.EntityIDs)

	w = do(r, http.MethodGet, "/api/v1/dms/deletions", "lab-power", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[dto.ListDeletionsResponse](t, w).Total)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, path+"/revert", "observer", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, path+"/revert", "lab-power", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, path+"/revert", "lab-power", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/dms/entities/D1", "admin", nil).Code)
}

func TestListPageSize(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"?limit=0", 20},
		{"?limit=-5", 20},
		{"?limit=7", 7},
		{"?limit=500", 100},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/v1/dms/deletions"+tt.query, "admin", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, decode[dto.ListDeletionsResponse](t, w).PageSize)

			w = do(r, http.MethodGet, "/api/v1/dms/entities"+tt.query, "admin", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, decode[dto.ListEntitiesResponse](t, w).PageSize)
		})
	}

	w := do(r, http.MethodGet, "/api/v1/dms/entities?offset=-3", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[dto.ListEntitiesResponse](t, w)
	assert.Equal(t, len(list.Items), list.NextOffset)
}

func TestDelete_EmptyIDs(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/dms/deletions", "lab-power", dto.DeleteRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deletion_id":null}`, w.Body.String())
}

func TestDelete_FrozenMember(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/dms/entities/D1/freeze", "admin", dto.FreezeRequest{Frozen: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[dto.EntityResponse](t, w).Freeze.Frozen)

	w = do(r, http.MethodPost, "/api/v1/dms/deletions", "lab-power", dto.DeleteRequest{IDs: []string{"C1"}, Reason: "cleanup"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "operation DELETE is not allowed because data set D1 is frozen")

	w = do(r, http.MethodPost, "/api/v1/dms/entities/C1/freeze", "lab-power", dto.FreezeRequest{Frozen: true})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPurgeAndManifest(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/dms/deletions", "admin", dto.DeleteRequest{IDs: []string{"D1"}, Reason: "wrong run"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[dto.DeleteResponse](t, w).DeletionID.String()
	path := "/api/v1/dms/deletions/" + id

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, path, "lab-power", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, path, "admin", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, path+"/revert", "admin", nil).Code)

	w = do(r, http.MethodGet, path+"/manifest", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var manifest struct {
		Deletion struct {
			Status string `json:"status"`
		} `json:"deletion"`
		Entities []struct {
			ID string `json:"id"`
		} `json:"entities"`
		PurgedBy string `json:"purged_by"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &manifest))
	assert.Equal(t, "PURGED", manifest.Deletion.Status)
	require.Len(t, manifest.Entities, 1)
	assert.Equal(t, "D1", manifest.Entities[0].ID)
	assert.Equal(t, "admin", manifest.PurgedBy)

	w = do(r, http.MethodGet, "/api/v1/dms/manifests", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.ListManifestsResponse](t, w).Items, 1)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/dms/manifests", "lab-power", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/dms/deletions/not-a-uuid", "admin", nil).Code)
}

func TestContentCopiesAndHistory(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/dms/entities/L1/content_copies", "lab-power", dto.AddContentCopyRequest{
		ExternalDmsID: "GITLAB", ExternalCode: "repo-1", Path: "/data",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cc := decode[dto.ContentCopyResponse](t, w)

	dms := "GITHUB"
	w = do(r, http.MethodPatch, "/api/v1/dms/entities/L1/linked_data", "lab-power", dto.UpdateLinkedDataRequest{ExternalDmsID: &dms})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	e := decode[dto.EntityResponse](t, w)
	require.Len(t, e.ContentCopies, 1)
	assert.Equal(t, "GITHUB", e.ContentCopies[0].ExternalDmsID)

	w = do(r, http.MethodGet, "/api/v1/dms/entities/L1/history", "observer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[dto.HistoryResponse](t, w)
	require.Len(t, history.Items, 1)
	assert.Equal(t, "GITLAB", history.Items[0].ExternalDmsID)
	assert.Equal(t, "CONTENT_COPY", history.Items[0].RelationType)

	w = do(r, http.MethodDelete, "/api/v1/dms/entities/L1/content_copies/"+cc.ID.String(), "lab-power", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "the original copy was replaced")

	w = do(r, http.MethodDelete, "/api/v1/dms/entities/L1/content_copies/"+e.ContentCopies[0].ID.String(), "lab-power", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v1/dms/entities/L1/history", "observer", nil)
	assert.Len(t, decode[dto.HistoryResponse](t, w).Items, 2)

	w = do(r, http.MethodPost, "/api/v1/dms/entities/D1/content_copies", "lab-power", dto.AddContentCopyRequest{ExternalDmsID: "GITLAB", Path: "/x"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "not a link data set")
}
