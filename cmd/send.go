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

	"github.com/spf13/cobra"

	"github.com/cardinalhq/bulkbody/config"
	"github.com/cardinalhq/bulkbody/payload"
)

func init() {
	var (
		input    string
		output   string
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Render a document batch into a bulk payload",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cleanup, err := setupLogging(&cfg.Log)
			if err != nil {
				return err
			}
			defer func() {
				if err := cleanup(); err != nil {
					slog.Error("Error closing log output", slog.Any("error", err))
				}
			}()

			if pageSize <= 0 {
				pageSize = cfg.Payload.PageSize
			}

			docs, err := loadBatch(input)
			if err != nil {
				return err
			}
			slog.Info("Loaded batch", slog.Int("documents", len(docs)))

			body, err := payload.NewBodySized(payload.JSONSerializer{}, docs, pageSize)
			if err != nil {
				return fmt.Errorf("failed to build body: %w", err)
			}
			defer body.Close()

			length := body.ContentLength()
			if length == payload.ContentLengthUnknown {
				slog.Info("Content length not known up front, streaming")
			} else {
				slog.Info("Content length known up front", slog.Int64("bytes", length))
			}

			out := os.Stdout
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			written, err := payload.Drain(body, out)
			if err != nil {
				return fmt.Errorf("failed to produce content: %w", err)
			}
			slog.Info("Batch produced", slog.Int64("bytes", written))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "NDJSON input file, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "buffer page size in bytes (default from config)")
	rootCmd.AddCommand(cmd)
}
