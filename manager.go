package main

import (
	"context"
	crand "crypto/rand"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/coder/quartz"

	"github.com/Seednode/whosaid/games/session"
)

const (
	gameIDLength   = 8
	gameIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	cfg     *Config
	clock   quartz.Clock
	prompts []session.Prompt

	mu   sync.Mutex
	hubs map[string]*Hub
}

// newGameManager starts reaping idle games until ctx is done.
func newGameManager(ctx context.Context, cfg *Config, clock quartz.Clock, prompts []session.Prompt) *GameManager {
	gm := &GameManager{
		cfg:     cfg,
		clock:   clock,
		prompts: prompts,
		hubs:    make(map[string]*Hub),
	}

	if cfg.sessionTimeout > 0 {
		clock.TickerFunc(ctx, cfg.sessionTimeout/2, func() error {
			gm.reap()
			return nil
		}, "reaper")
	}

	go func() {
		<-ctx.Done()
		gm.closeAll()
	}()

	return gm
}

// getHub returns the hub for gameID, creating and starting it if needed.
func (gm *GameManager) getHub(gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gm.cfg, gameID, gm.clock, gm.prompts, gm.newRand())
	gm.hubs[gameID] = hub
	go hub.run()

	return hub
}

func (gm *GameManager) lookup(gameID string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[gameID]

	return hub, ok
}

// newRand returns the prompt picker for a new game. A configured seed makes
// every game draw prompts in the same order.
func (gm *GameManager) newRand() session.RandSource {
	if gm.cfg.seed != 0 {
		return rand.New(rand.NewPCG(gm.cfg.seed, gm.cfg.seed))
	}

	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	for {
		id := randomGameID(gameIDLength)

		if _, exists := gm.lookup(id); !exists {
			return id
		}
	}
}

func randomGameID(n int) string {
	const max = byte(255 - (256 % len(gameIDAlphabet)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for {
		if _, err := crand.Read(buf); err != nil {
			panic(err)
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, gameIDAlphabet[int(b)%len(gameIDAlphabet)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}
}

// reap removes hubs that have been idle longer than the session timeout.
func (gm *GameManager) reap() {
	cutoff := gm.clock.Now().Add(-gm.cfg.sessionTimeout)

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		if hub.idleSince().Before(cutoff) {
			delete(gm.hubs, id)
			hub.close()
			logf(gm.cfg, "GAMES: Reaped idle game %s", id)
		}
	}
}

func (gm *GameManager) closeAll() {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.close()
	}
}

// validGameID reports whether id could have come from randomGameID.
func validGameID(id string) bool {
	if len(id) != gameIDLength {
		return false
	}

	for _, r := range id {
		if !strings.ContainsRune(gameIDAlphabet, r) {
			return false
		}
	}

	return true
}
