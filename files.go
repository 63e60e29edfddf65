/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Seednode/whosaid/games/session"
)

//go:embed prompts.txt
var defaultPrompts string

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

// loadPrompts reads the prompt pool from path, or returns the built-in pool
// when path is empty.
func loadPrompts(cfg *Config, path string) ([]session.Prompt, error) {
	if path == "" {
		return parsePrompts(strings.NewReader(defaultPrompts))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	prompts, err := parsePrompts(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logf(cfg, "PROMPTS: Loaded %d prompts from %s (%s)", len(prompts), path, humanReadableSize(info.Size()))

	return prompts, nil
}

// parsePrompts takes one prompt per line. Blank lines and lines starting
// with # are skipped, and repeats are dropped.
func parsePrompts(r io.Reader) ([]session.Prompt, error) {
	var prompts []session.Prompt

	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}

		seen[line] = true
		prompts = append(prompts, session.Prompt(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(prompts) == 0 {
		return nil, errNoPrompts
	}

	return prompts, nil
}
