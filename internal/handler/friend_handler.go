package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"relaychat/internal/app/store"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

const (
	searchResultLimit = 20
	maxGroupLength    = 30
)

// HandleListFriends returns the caller's friends with their online state.
func HandleListFriends(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		friends, err := deps.Hub.FriendsWithPresence(r.Context(), identity.ID)
		if err != nil {
			logx.Error(err, "list friends failed", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"friends": friends})
	}
}

// HandleSearchUsers finds users the caller could add as friends.
func HandleSearchUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		query := strings.TrimSpace(r.URL.Query().Get("query"))
		if query == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		users, err := deps.Store.SearchUsers(r.Context(), identity.ID, query, searchResultLimit)
		if err != nil {
			logx.Error(err, "user search failed", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"users": users})
	}
}

type AddFriendInput struct {
	FriendID string `json:"friendId"`
	Group    string `json:"group,omitempty"`
}

// HandleAddFriend links the caller and friendId in both directions.
func HandleAddFriend(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		var input AddFriendInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		friendID := strings.TrimSpace(input.FriendID)
		if friendID == "" || friendID == identity.ID {
			resp.RespondError(w, r, errs.NewError(errs.ErrFriendInvalid))
			return
		}

		group := user.DefaultGroup
		if strings.TrimSpace(input.Group) != "" {
			var customErr *errs.CustomError
			if group, customErr = normalizeGroup(input.Group); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
		}

		err := deps.Store.AddFriend(r.Context(), identity.ID, friendID, group)
		switch {
		case errors.Is(err, store.ErrAlreadyFriends):
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyFriends))
			return
		case errors.Is(err, store.ErrNotFound):
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		case err != nil:
			logx.Error(err, "add friend failed", "user_id", identity.ID, "friend_id", friendID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		pushFriendLists(deps, identity.ID, friendID)
		resp.RespondSuccess(w, r, nil)
	}
}

// HandleRemoveFriend unlinks the caller and the friend in the URL.
func HandleRemoveFriend(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		friendID := chi.URLParam(r, "friendId")

		err := deps.Store.RemoveFriend(r.Context(), identity.ID, friendID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			resp.RespondError(w, r, errs.NewError(errs.ErrFriendNotFound))
			return
		case err != nil:
			logx.Error(err, "remove friend failed", "user_id", identity.ID, "friend_id", friendID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		pushFriendLists(deps, identity.ID, friendID)
		resp.RespondSuccess(w, r, nil)
	}
}

type MoveFriendInput struct {
	Group string `json:"group"`
}

// HandleMoveFriend changes the group the caller files the friend under.
func HandleMoveFriend(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		friendID := chi.URLParam(r, "friendId")

		var input MoveFriendInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		group, customErr := normalizeGroup(input.Group)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		err := deps.Store.MoveFriend(r.Context(), identity.ID, friendID, group)
		switch {
		case errors.Is(err, store.ErrNotFound):
			resp.RespondError(w, r, errs.NewError(errs.ErrFriendNotFound))
			return
		case err != nil:
			logx.Error(err, "move friend failed", "user_id", identity.ID, "friend_id", friendID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		pushFriendLists(deps, identity.ID)
		resp.RespondSuccess(w, r, map[string]any{"group": group})
	}
}

func normalizeGroup(raw string) (string, *errs.CustomError) {
	group := strings.TrimSpace(raw)
	if group == "" || utf8.RuneCountInString(group) > maxGroupLength {
		return "", errs.NewError(errs.ErrGroupInvalid)
	}
	return group, nil
}

// pushFriendLists refreshes the friend list on the live connections of userIDs.
func pushFriendLists(deps *AppDeps, userIDs ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), deps.Config.StoreTimeout)
	defer cancel()

	for _, id := range userIDs {
		if err := deps.Hub.PushFriendList(ctx, id); err != nil {
			logx.Warn("failed to push friend list", "user_id", id, "error", err.Error())
		}
	}
}
