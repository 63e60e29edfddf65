// Whosaid
//
// Every player answers the same prompt. The moderator reads the answers out
// (revealing them one by one), then players take turns guessing who wrote
// which answer. A correct guess earns a point. Once everyone has guessed the
// next prompt is drawn, and the game ends when the prompts run out.
//
// Routes, relative to the configured path:
//   - $path                  → redirects to a new random game (8-char ID)
//   - $path/:gameid          → landing page for that game
//   - $path/:gameid/state    → JSON view of the game for the calling player
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/whosaid/games/session"
)

const gamePath = "/whosaid"

// redirectNewGame handles GET /path by generating a new random game ID
// and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s", gameID)
		http.Redirect(w, r, cfg.prefix+gamePath+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

func serveGamePage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		_ = getOrSetPlayerID(cfg, w, r)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		id := html.EscapeString(gameID)
		body := fmt.Sprintf(`Game %s<br><img src="%s%s/%s/qr" alt="Scan to join">`, id, cfg.prefix, gamePath, id)

		written, err := io.WriteString(w, newPage("whosaid | "+id, body, cfg.prefix+gamePath+"/"+id))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Game page %s (%s) to %s in %s",
			gameID,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveState returns the game as the calling player would see it over the
// websocket. Unknown games are not created.
func serveState(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		hub, ok := gm.lookup(gameID)
		if !ok {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		var viewerID string
		if c, err := r.Cookie(playerCookieName); err == nil {
			viewerID = c.Value
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(hub.snapshot(viewerID)); err != nil {
			errs <- err
		}
	}
}

// serveWS picks the hub based on :gameid and runs the client pumps. Only
// well-formed ids get a hub.
func serveWS(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		playerID := getOrSetPlayerID(cfg, w, r)

		hub := gm.getHub(gameID)

		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			logger.Error("websocket upgrade failed", "game", gameID, "err", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

// registerWhosaid sets up the game routes under cfg.prefix+gamePath.
func registerWhosaid(ctx context.Context, cfg *Config, mux *httprouter.Router, clock quartz.Clock, prompts []session.Prompt, errs chan<- error) *GameManager {
	gm := newGameManager(ctx, cfg, clock, prompts)

	mux.GET(cfg.prefix+gamePath, redirectNewGame(cfg, gm))
	mux.GET(cfg.prefix+gamePath+"/:gameid", serveGamePage(cfg, errs))
	mux.GET(cfg.prefix+gamePath+"/:gameid/state", serveState(cfg, gm, errs))
	mux.GET(cfg.prefix+gamePath+"/:gameid/ws", serveWS(cfg, gm))
	mux.GET(cfg.prefix+gamePath+"/:gameid/qr", serveQR(cfg, errs))

	return gm
}
