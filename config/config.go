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

// Package config loads bulkbody configuration from files and environment
// variables.
package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardinalhq/bulkbody/internal/pagewriter"
)

// Config aggregates configuration for the CLI.
type Config struct {
	Payload PayloadConfig `mapstructure:"payload"`
	Digest  DigestConfig  `mapstructure:"digest"`
	Log     LogConfig     `mapstructure:"log"`
}

// PayloadConfig controls body production.
type PayloadConfig struct {
	// PageSize is the byte capacity of each buffer page.
	PageSize int `mapstructure:"page_size"`
}

// DigestConfig controls the digest subcommand.
type DigestConfig struct {
	// Algorithm is the default digest algorithm, "sha256" or "xxh64".
	Algorithm string `mapstructure:"algorithm"`
}

// LogConfig controls logging output.
type LogConfig struct {
	// File, when set, receives a JSON copy of all log records in
	// addition to the text output on stderr.
	File string `mapstructure:"file"`
	// Debug lowers the log level to debug.
	Debug bool `mapstructure:"debug"`
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "BULKBODY" and the dot character
// in keys is replaced by an underscore. For example, "payload.page_size"
// becomes "BULKBODY_PAYLOAD_PAGE_SIZE".
func Load() (*Config, error) {
	cfg := &Config{
		Payload: PayloadConfig{PageSize: pagewriter.DefaultPageSize},
		Digest:  DigestConfig{Algorithm: "sha256"},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("BULKBODY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
