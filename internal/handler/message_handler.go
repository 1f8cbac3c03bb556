package handler

import (
	"bufio"
	"errors"
	"mime"
	"net/http"
	"strings"

	"relaychat/internal/app/message"
	"relaychat/internal/app/store"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// HandleDownloadHistory sends the full public history, or the caller's full history
// with targetId, as a plain-text attachment with one line per message.
func HandleDownloadHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		query := r.URL.Query()

		var scope message.Scope
		var filename string

		switch query.Get("chatType") {
		case "public":
			scope = message.PublicScope()
			filename = "public_chat_history.txt"

		case "private":
			targetID := strings.TrimSpace(query.Get("targetId"))
			if targetID == "" {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}

			peer, err := deps.Store.UserByID(r.Context(), targetID)
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			if err != nil {
				logx.Error(err, "history export: peer lookup failed", "user_id", identity.ID, "target_id", targetID)
				resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
				return
			}

			scope = message.PrivateScope(identity.ID, peer.ID)
			filename = "chat_with_" + peer.Name + ".txt"

		default:
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		w.Header().Set("X-Content-Type-Options", "nosniff")

		out := &startedWriter{ResponseWriter: w}
		buf := bufio.NewWriter(out)
		lines := 0

		err := deps.Store.ExportHistory(r.Context(), scope, func(m message.Message) error {
			lines++
			if _, err := buf.WriteString(m.TranscriptLine()); err != nil {
				return err
			}
			return buf.WriteByte('\n')
		})
		if err == nil {
			err = buf.Flush()
		}

		if err != nil {
			logx.Error(err, "history export failed", "user_id", identity.ID, "scope", scope.Label(), "lines", lines)
			if !out.started {
				w.Header().Del("Content-Disposition")
				resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			}
			return
		}

		if !out.started {
			w.WriteHeader(http.StatusOK)
		}

		logx.Info("History exported", "user_id", identity.ID, "scope", scope.Label(), "lines", lines)
	}
}

// startedWriter records whether any body bytes reached the client.
type startedWriter struct {
	http.ResponseWriter
	started bool
}

func (s *startedWriter) Write(p []byte) (int, error) {
	s.started = true
	return s.ResponseWriter.Write(p)
}
