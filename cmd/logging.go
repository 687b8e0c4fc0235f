// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"

	"github.com/cardinalhq/bulkbody/config"
)

// setupLogging installs the default slog logger: text on stderr, with an
// optional JSON copy fanned out to a log file, and a run id on every
// record. The returned function closes the log file, if any.
func setupLogging(cfg *config.LogConfig) (func() error, error) {
	var opts *slog.HandlerOptions
	if cfg.Debug || os.Getenv("BULKBODY_DEBUG") != "" {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}

	handler := slog.Handler(slog.NewTextHandler(os.Stderr, opts))
	cleanup := func() error { return nil }

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handler = slogmulti.Fanout(
			handler,
			slog.NewJSONHandler(f, opts),
		)
		cleanup = f.Close
	}

	slog.SetDefault(slog.New(handler).With(
		slog.String("run_id", uuid.NewString()),
	))
	return cleanup, nil
}
