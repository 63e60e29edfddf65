/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	errNoPrompts         = errors.New("no prompts found")
	errGameStarted       = errors.New("the game has already started")
	errNotEnoughPlayers  = errors.New("not enough players to start")
	errNotYourTurn       = errors.New("it is not your turn to guess")
	errNotPlaying        = errors.New("you are not playing in this game")
	errBadGuess          = errors.New("there is no response at that position")
	errNotRevealed       = errors.New("that response has not been revealed yet")
	errAlreadyIdentified = errors.New("that response has already been identified")
	errNotModerator      = errors.New("only the moderator can do that")
	errModeratorJoin     = errors.New("the moderator does not play")
)

func newLogger(cfg *Config, w io.Writer) *log.Logger {
	level := log.InfoLevel
	if cfg.verbose {
		level = log.DebugLevel
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      logDate,
	})
}

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      logDate,
})

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	logger.Infof(format, args...)
}

func newPage(title, body, href string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"%s\">%s</a></body></html>", href, body))

	return htmlBody.String()
}
