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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/bulkbody/config"
	"github.com/cardinalhq/bulkbody/payload"
)

func init() {
	var (
		input string
		algo  string
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Compute the digest and exact byte length of a batch",
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

			if algo == "" {
				algo = cfg.Digest.Algorithm
			}
			var h hash.Hash
			switch algo {
			case "sha256":
				h = sha256.New()
			case "xxh64":
				h = xxhash.New()
			default:
				return fmt.Errorf("unknown digest algorithm %q", algo)
			}

			docs, err := loadBatch(input)
			if err != nil {
				return err
			}

			body, err := payload.NewBody(payload.JSONSerializer{}, docs)
			if err != nil {
				return fmt.Errorf("failed to build body: %w", err)
			}
			defer body.Close()

			if err := body.FillDigest(h); err != nil {
				return fmt.Errorf("failed to fill digest: %w", err)
			}

			fmt.Printf("%s:%s  %d bytes\n", algo, hex.EncodeToString(h.Sum(nil)), body.ContentLength())
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "NDJSON input file, - for stdin")
	cmd.Flags().StringVar(&algo, "algo", "", "digest algorithm: sha256 or xxh64 (default from config)")
	rootCmd.AddCommand(cmd)
}
