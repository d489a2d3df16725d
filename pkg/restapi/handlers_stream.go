package restapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lsmsample/lsmsample/pkg/logging"
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients of this engine are trusted operators/dashboards, not
	// browser pages from arbitrary origins, so the usual same-origin
	// check would only get in the way.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const streamInterval = 500 * time.Millisecond

// handleStream upgrades to a websocket connection and pushes a stats
// snapshot on every tick until the client disconnects, an alternative
// to polling /v1/stats for dashboards like cmd/tui-bench.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("stream upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		stats := statsResponse{
			RecordCount:    s.engine.RecordCount(),
			TombstoneCount: s.engine.TombstoneCount(),
			Height:         s.engine.Height(),
			Utilization:    s.engine.MemoryUtilization(),
		}
		if err := conn.WriteJSON(stats); err != nil {
			return
		}
		<-ticker.C
	}
}
