/*
Copyright (C) 2026  d4 Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package config loads the single frozen CostConfig a run is built around
// (spec.md §9 Design Notes: "accept a single frozen CostConfig record ...
// validated once at construction"), and optionally watches it for edits.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"

	"github.com/launix-de/d4/costmodel"
)

// rawConfig is the on-disk JSON shape: human-readable sizes as strings,
// converted to byte counts by Load.
type rawConfig struct {
	NumNodes        int     `json:"num_nodes"`
	PageSize        string  `json:"page_size"`  // e.g. "4KiB"
	MaxMemory       string  `json:"max_memory"` // e.g. "512MiB"
	SkewWindows     int     `json:"skew_windows"`
	LeaderboardSize int     `json:"leaderboard_size"`
	WeightDisk      float64 `json:"weight_disk"`
	WeightSkew      float64 `json:"weight_skew"`
	WeightNetwork   float64 `json:"weight_network"`
}

// Config is the validated, ready-to-use configuration for one search run.
type Config struct {
	NumNodes        int
	WindowSize      int // LRU buffer slots: MaxMemory / PageSize
	SkewWindows     int
	LeaderboardSize int
	Weights         costmodel.Weights
}

// ConfigError reports a config value that failed validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads and validates a CostConfig from a JSON file at path, parsing
// PageSize/MaxMemory as human-readable byte sizes via go-units (the same
// library an operator would reach for sizing a cluster config, rather than
// typing raw byte counts).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return fromRaw(raw)
}

func fromRaw(raw rawConfig) (*Config, error) {
	if raw.NumNodes < 1 {
		return nil, &ConfigError{Field: "num_nodes", Reason: "must be >= 1"}
	}
	pageSize, err := units.RAMInBytes(raw.PageSize)
	if err != nil || pageSize <= 0 {
		return nil, &ConfigError{Field: "page_size", Reason: "must be a positive size, e.g. \"4KiB\""}
	}
	maxMemory, err := units.RAMInBytes(raw.MaxMemory)
	if err != nil || maxMemory <= 0 {
		return nil, &ConfigError{Field: "max_memory", Reason: "must be a positive size, e.g. \"512MiB\""}
	}
	windowSize := int(maxMemory / pageSize)
	if windowSize < 1 {
		return nil, &ConfigError{Field: "max_memory", Reason: "must hold at least one page_size slot"}
	}
	if raw.SkewWindows < 1 {
		raw.SkewWindows = 1
	}
	if raw.LeaderboardSize < 1 {
		raw.LeaderboardSize = 1
	}
	if raw.WeightDisk < 0 || raw.WeightSkew < 0 || raw.WeightNetwork < 0 {
		return nil, &ConfigError{Field: "weight_*", Reason: "weights must be non-negative"}
	}
	if raw.WeightDisk == 0 && raw.WeightSkew == 0 && raw.WeightNetwork == 0 {
		return nil, &ConfigError{Field: "weight_*", Reason: "at least one weight must be positive"}
	}

	return &Config{
		NumNodes:        raw.NumNodes,
		WindowSize:      windowSize,
		SkewWindows:     raw.SkewWindows,
		LeaderboardSize: raw.LeaderboardSize,
		Weights:         costmodel.Weights{Disk: raw.WeightDisk, Skew: raw.WeightSkew, Network: raw.WeightNetwork},
	}, nil
}

// Watcher re-reads and re-validates the config file at path whenever its
// directory reports a write, publishing the new Config on Updates. Adapted
// from the "install a hook once, let it run in the background" pattern
// storage/settings.go applies via onexit.Register, but driven by fsnotify
// instead of process-exit.
type Watcher struct {
	Updates chan *Config
	Errors  chan error

	watcher *fsnotify.Watcher
	path    string
	done    chan struct{}
}

// NewWatcher starts watching path's directory (fsnotify watches
// directories, not bare files, so that editors which replace-via-rename
// still trigger a reload) and immediately performs one Load, delivered on
// Updates before any filesystem event fires.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{
		Updates: make(chan *Config, 1),
		Errors:  make(chan error, 1),
		watcher: fw,
		path:    filepath.Clean(path),
		done:    make(chan struct{}),
	}
	go w.run()
	if cfg, err := Load(path); err == nil {
		w.Updates <- cfg
	} else {
		w.Errors <- err
	}
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !(ev.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				select {
				case w.Errors <- err:
				default:
				}
				continue
			}
			select {
			case w.Updates <- cfg:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		}
	}
}

// Close stops the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
