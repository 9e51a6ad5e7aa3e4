/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the engine settings from a file and the environment.
//
// Priority (highest to lowest):
//  1. Environment variables with AOP_ prefix (e.g., AOP_LOG_LEVEL)
//  2. The settings file (yaml, json or toml, by extension)
//  3. Built-in defaults
//
// config 包从配置文件和环境变量加载引擎配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rulego/aop/api/types"
	"github.com/spf13/viper"
)

// Settings holds all engine settings
type Settings struct {
	Log     LogSettings
	Aspects AspectsSettings
	Script  ScriptSettings
	Proxy   ProxySettings
	Server  ServerSettings
	// Properties are exposed to declared aspects as ${global.key}
	Properties map[string]string
}

// LogSettings holds logging configuration
type LogSettings struct {
	Level  string `validate:"oneof=debug info warn warning error fatal"`
	Format string `validate:"oneof=json console"`
	Output string `validate:"required"` // stdout, stderr, or file path
}

// AspectsSettings holds the declared aspects
type AspectsSettings struct {
	File string // aspect definition file, yaml or json
}

// ScriptSettings holds script pointcut settings
type ScriptSettings struct {
	MaxExecutionTime time.Duration `validate:"gt=0"`
}

// ProxySettings holds auto proxy settings
type ProxySettings struct {
	IncludePatterns []string // regular expressions over aspect names
}

// ServerSettings holds the invoke endpoint settings
type ServerSettings struct {
	Addr string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("script.max_execution_time", 2*time.Second)
	v.SetDefault("server.addr", ":9090")
}

// Load loads the settings. An empty path uses the defaults and the environment only.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(types.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := &Settings{
		Log: LogSettings{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
			Output: v.GetString("log.output"),
		},
		Aspects: AspectsSettings{
			File: v.GetString("aspects.file"),
		},
		Script: ScriptSettings{
			MaxExecutionTime: v.GetDuration("script.max_execution_time"),
		},
		Proxy: ProxySettings{
			IncludePatterns: v.GetStringSlice("proxy.include_patterns"),
		},
		Server: ServerSettings{
			Addr: v.GetString("server.addr"),
		},
		Properties: v.GetStringMapString("properties"),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings values.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Options converts the settings into engine options. The logger is built from the
// log settings.
func (s *Settings) Options() ([]types.Option, error) {
	logger, err := NewZapLogger(s.Log)
	if err != nil {
		return nil, err
	}
	opts := []types.Option{
		types.WithLogger(types.NewZapLogger(logger)),
		types.WithScriptMaxExecutionTime(s.Script.MaxExecutionTime),
	}
	if len(s.Proxy.IncludePatterns) > 0 {
		opts = append(opts, types.WithIncludePatterns(s.Proxy.IncludePatterns...))
	}
	if len(s.Properties) > 0 {
		opts = append(opts, types.WithProperties(s.Properties))
	}
	return opts, nil
}
