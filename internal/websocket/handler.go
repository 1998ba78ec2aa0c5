package websocket

import (
	"log/slog"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/daybreak/internal/auth"
)

// Authorizer reports whether userID may watch groupID's feed.
type Authorizer func(userID, groupID int64) (bool, error)

// HandleWebSocket upgrades authenticated requests and runs them as hub
// clients. An optional group_id query parameter narrows the feed; when
// authorize is set the caller must pass it for that group.
func HandleWebSocket(hub *Hub, authorize Authorizer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		var groupID int64
		if s := r.URL.Query().Get("group_id"); s != "" {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				http.Error(w, "invalid group_id", http.StatusBadRequest)
				return
			}
			groupID = id
		}
		if groupID != 0 && authorize != nil {
			ok, err := authorize(userID, groupID)
			if err != nil {
				logger.Error("authorize websocket", "user_id", userID, "group_id", groupID, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, "not a member of this group", http.StatusForbidden)
				return
			}
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // native clients send no Origin
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, userID, groupID)
		client.Run(r.Context())
	}
}
