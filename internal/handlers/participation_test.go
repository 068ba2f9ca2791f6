package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"group-service/internal/mocks"
	"group-service/internal/registry"
)

func setupParticipationRouter(handler *ParticipationHandler, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	r.GET("/is-an-user-event", handler.IsUserEvent)
	r.POST("/user-events", handler.JoinEvent)
	r.DELETE("/user-events", handler.LeaveEvent)
	return r
}

func TestJoinEventIsIdempotent(t *testing.T) {
	store := mocks.NewMemStore()
	reg := registry.New(store, store, nil)
	router := setupParticipationRouter(NewParticipationHandler(store, reg, nil), 1)

	rec := doJSON(t, router, http.MethodPost, "/user-events", `{"eventId":"ev-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/user-events", `{"eventId":"ev-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, store.ParticipationCount())
}

func TestIsUserEvent(t *testing.T) {
	store := mocks.NewMemStore()
	reg := registry.New(store, store, nil)
	require.NoError(t, store.Join(context.Background(), 1, "ev-1"))
	router := setupParticipationRouter(NewParticipationHandler(store, reg, nil), 1)

	rec := doJSON(t, router, http.MethodGet, "/is-an-user-event?eventId=ev-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"isParticipant":true}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/is-an-user-event?eventId=ev-2", "")
	require.JSONEq(t, `{"isParticipant":false}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/is-an-user-event", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaveEventCascadesIntoGroups(t *testing.T) {
	store := mocks.NewMemStore()
	reg := registry.New(store, store, nil)
	ctx := context.Background()
	require.NoError(t, store.Join(ctx, 1, "ev-1"))
	group, err := reg.Create(ctx, 1, "ev-1", "crew", "desc", 5)
	require.NoError(t, err)

	router := setupParticipationRouter(NewParticipationHandler(store, reg, nil), 1)
	rec := doJSON(t, router, http.MethodDelete, "/user-events", `{"eventId":"ev-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	ok, err := store.IsParticipant(ctx, 1, "ev-1")
	require.NoError(t, err)
	require.False(t, ok)

	// the created group went down with the participation
	_, err = reg.Get(ctx, group.ID)
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestLeaveEventInvalidBody(t *testing.T) {
	store := mocks.NewMemStore()
	reg := registry.New(store, store, nil)
	router := setupParticipationRouter(NewParticipationHandler(store, reg, nil), 1)

	rec := doJSON(t, router, http.MethodDelete, "/user-events", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
