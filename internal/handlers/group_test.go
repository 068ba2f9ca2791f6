package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"group-service/internal/mocks"
	"group-service/internal/models"
	"group-service/internal/registry"
)

func setupGroupRouter(handler *GroupHandler, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	r.POST("/event-groups", handler.CreateGroup)
	r.PUT("/event-groups", handler.UpdateGroup)
	r.DELETE("/event-groups", handler.DeleteGroup)
	r.GET("/event-groups", handler.ListEventGroups)
	r.GET("/event-group", handler.GetGroup)
	r.POST("/join-group", handler.JoinGroup)
	r.POST("/leave-group", handler.LeaveGroup)
	r.POST("/kick-user", handler.KickUser)
	r.POST("/ban-user", handler.BanUser)
	r.GET("/is-user-in-group", handler.IsUserInGroup)
	r.GET("/created-group-chat", handler.ListCreatedGroups)
	r.GET("/joined-group-chat", handler.ListJoinedGroups)
	return r
}

func newGroupFixture(t *testing.T) (*registry.Registry, *mocks.MemStore) {
	t.Helper()
	store := mocks.NewMemStore()
	return registry.New(store, store, nil), store
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateGroupSuccess(t *testing.T) {
	reg, store := newGroupFixture(t)
	require.NoError(t, store.Join(context.Background(), 1, "ev-1"))
	router := setupGroupRouter(NewGroupHandler(reg, nil), 1)

	rec := doJSON(t, router, http.MethodPost, "/event-groups",
		`{"name":"Hiking crew","description":"Sunday hike","maxCapacity":5,"eventId":"ev-1"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	var group models.GroupDetail
	require.NoError(t, json.Unmarshal(body["updatedGroup"], &group))
	require.Equal(t, "Hiking crew", group.Name)
	require.Equal(t, 5, group.MaxCapacity)
	require.Len(t, group.Users, 1)
}

func TestCreateGroupInvalidBody(t *testing.T) {
	reg, _ := newGroupFixture(t)
	router := setupGroupRouter(NewGroupHandler(reg, nil), 1)

	rec := doJSON(t, router, http.MethodPost, "/event-groups", `{"name":5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateGroupWithoutParticipation(t *testing.T) {
	reg, _ := newGroupFixture(t)
	router := setupGroupRouter(NewGroupHandler(reg, nil), 1)

	rec := doJSON(t, router, http.MethodPost, "/event-groups",
		`{"name":"crew","description":"desc","maxCapacity":5,"eventId":"ev-1"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateGroupTwiceConflicts(t *testing.T) {
	reg, store := newGroupFixture(t)
	require.NoError(t, store.Join(context.Background(), 1, "ev-1"))
	router := setupGroupRouter(NewGroupHandler(reg, nil), 1)

	payload := `{"name":"crew","description":"desc","maxCapacity":5,"eventId":"ev-1"}`
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/event-groups", payload).Code)
	require.Equal(t, http.StatusConflict, doJSON(t, router, http.MethodPost, "/event-groups", payload).Code)
}

func TestUpdateGroupByNonCreator(t *testing.T) {
	reg, store := newGroupFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Join(ctx, 1, "ev-1"))
	_, err := reg.Create(ctx, 1, "ev-1", "crew", "desc", 5)
	require.NoError(t, err)

	router := setupGroupRouter(NewGroupHandler(reg, nil), 2)
	rec := doJSON(t, router, http.MethodPut, "/event-groups",
		`{"name":"hijacked","description":"desc","maxCapacity":5,"eventId":"ev-1"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteGroup(t *testing.T) {
	reg, store := newGroupFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Join(ctx, 1, "ev-1"))
	group, err := reg.Create(ctx, 1, "ev-1", "crew", "desc", 5)
	require.NoError(t, err)

	router := setupGroupRouter(NewGroupHandler(reg, nil), 1)
	rec := doJSON(t, router, http.MethodDelete, "/event-groups", `{"eventId":"ev-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/event-group?eventGroupId=%d", group.ID), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetGroup(t *testing.T) {
	reg, store := newGroupFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Join(ctx, 1, "ev-1"))
	group, err := reg.Create(ctx, 1, "ev-1", "crew", "desc", 5)
	require.NoError(t, err)

	router := setupGroupRouter(NewGroupHandler(reg, nil), 1)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/event-group?eventGroupId=%d", group.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	var got models.GroupDetail
	require.NoError(t, json.Unmarshal(body["groupInfo"], &got))
	require.Equal(t, group.ID, got.ID)

	rec = doJSON(t, router, http.MethodGet, "/event-group?eventGroupId=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinGroupFlow(t *testing.T) {
	reg, store := newGroupFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Join(ctx, 1, "ev-1"))
	require.NoError(t, store.Join(ctx, 2, "ev-1"))
	group, err := reg.Create(ctx, 1, "ev-1", "crew", "desc", 2)
	require.NoError(t, err)

	router := setupGroupRouter(NewGroupHandler(reg, nil), 2)
	payload := fmt.Sprintf(`{"eventId":"ev-1","eventGroupId":%d}`, group.ID)

	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/join-group", payload).Code)
	require.Equal(t, http.StatusConflict, doJSON(t, router, http.MethodPost, "/join-group", payload).Code)

	// a third participant finds the group full
	require.NoError(t, store.Join(ctx, 3, "ev-1"))
	third := setupGroupRouter(NewGroupHandler(reg, nil), 3)
	require.Equal(t, http.StatusConflict, doJSON(t, third, http.MethodPost, "/join-group", payload).Code)
}

func TestLeaveGroupAsCreatorDeletes(t *testing.T) {
	reg, store := newGroupFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Join(ctx, 1, "ev-1"))
	group, err := reg.Create(ctx, 1, "ev-1", "crew", "desc", 5)
	require.NoError(t, err)

	router := setupGroupRouter(NewGroupHandler(reg, nil), 1)
	rec := doJSON(t, router, http.MethodPost, "/leave-group", fmt.Sprintf(`{"eventGroupId":%d}`, group.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = reg.Get(ctx, group.ID)
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestKickAndBanUser(t *testing.T) {
	reg, store := newGroupFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Join(ctx, 1, "ev-1"))
	require.NoError(t, store.Join(ctx, 2, "ev-1"))
	group, err := reg.Create(ctx, 1, "ev-1", "crew", "desc", 5)
	require.NoError(t, err)
	require.NoError(t, reg.Join(ctx, 2, group.ID))

	creator := setupGroupRouter(NewGroupHandler(reg, nil), 1)

	rec := doJSON(t, creator, http.MethodPost, "/kick-user", `{"eventId":"ev-1","userToKickId":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, reg.Join(ctx, 2, group.ID))

	rec = doJSON(t, creator, http.MethodPost, "/ban-user", `{"eventId":"ev-1","userToBanId":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.ErrorIs(t, reg.Join(ctx, 2, group.ID), registry.ErrBanned)

	// non-creators cannot kick
	outsider := setupGroupRouter(NewGroupHandler(reg, nil), 2)
	rec = doJSON(t, outsider, http.MethodPost, "/kick-user", `{"eventId":"ev-1","userToKickId":1}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIsUserInGroup(t *testing.T) {
	reg, store := newGroupFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Join(ctx, 1, "ev-1"))
	_, err := reg.Create(ctx, 1, "ev-1", "crew", "desc", 5)
	require.NoError(t, err)

	router := setupGroupRouter(NewGroupHandler(reg, nil), 1)
	rec := doJSON(t, router, http.MethodGet, "/is-user-in-group?eventId=ev-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"isMember":true}`, rec.Body.String())

	outsider := setupGroupRouter(NewGroupHandler(reg, nil), 9)
	rec = doJSON(t, outsider, http.MethodGet, "/is-user-in-group?eventId=ev-1", "")
	require.JSONEq(t, `{"isMember":false}`, rec.Body.String())
}

func TestListEventGroupsPagination(t *testing.T) {
	reg, store := newGroupFixture(t)
	ctx := context.Background()
	for i := 1; i <= registry.PageSize+2; i++ {
		require.NoError(t, store.Join(ctx, i, "ev-1"))
		_, err := reg.Create(ctx, i, "ev-1", fmt.Sprintf("crew %d", i), "desc", 5)
		require.NoError(t, err)
	}

	router := setupGroupRouter(NewGroupHandler(reg, nil), 1)

	rec := doJSON(t, router, http.MethodGet, "/event-groups?eventId=ev-1&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	var groups []models.GroupDetail
	require.NoError(t, json.Unmarshal(body["groups"], &groups))
	require.Len(t, groups, 2)
	require.JSONEq(t, "12", string(body["nbOfGroups"]))
	require.JSONEq(t, "2", string(body["totalPage"]))

	rec = doJSON(t, router, http.MethodGet, "/event-groups", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCreatedAndJoinedGroups(t *testing.T) {
	reg, store := newGroupFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Join(ctx, 1, "ev-1"))
	require.NoError(t, store.Join(ctx, 2, "ev-1"))
	group, err := reg.Create(ctx, 1, "ev-1", "crew", "desc", 5)
	require.NoError(t, err)
	require.NoError(t, reg.Join(ctx, 2, group.ID))

	creator := setupGroupRouter(NewGroupHandler(reg, nil), 1)
	rec := doJSON(t, creator, http.MethodGet, "/created-group-chat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	var created []models.GroupDetail
	require.NoError(t, json.Unmarshal(body["createdGroups"], &created))
	require.Len(t, created, 1)

	member := setupGroupRouter(NewGroupHandler(reg, nil), 2)
	rec = doJSON(t, member, http.MethodGet, "/joined-group-chat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	var joined []models.GroupDetail
	require.NoError(t, json.Unmarshal(body["joinedGroups"], &joined))
	require.Len(t, joined, 1)
}
