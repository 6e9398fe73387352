// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/host"
)

const envPrefix = "EXTHOST"

const (
	flagConfig                 = "config"
	flagExtensionsDir          = "extensions-dir"
	flagLogLevel               = "log-level"
	flagFolder                 = "folder"
	flagWorkspaceID            = "workspace-id"
	flagAutoStart              = "auto-start"
	flagDeferredStartup        = "deferred-startup"
	flagRemoteAuthority        = "remote-authority"
	flagStateDir               = "state-dir"
	flagWatch                  = "watch"
	flagEagerActivationTimeout = "eager-activation-timeout"
	flagTerminationTimeout     = "termination-timeout"
)

// Config is the exthost configuration. Values come from the flags, the
// EXTHOST_ environment variables and the config file, in that order of precedence.
type Config struct {
	ExtensionsDir          string        `mapstructure:"extensions_dir" validate:"required"`
	LogLevel               string        `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Folders                []string      `mapstructure:"folders" validate:"dive,required"`
	WorkspaceID            string        `mapstructure:"workspace_id" validate:"required"`
	AutoStart              bool          `mapstructure:"auto_start"`
	DeferredStartup        bool          `mapstructure:"deferred_startup"`
	RemoteAuthority        string        `mapstructure:"remote_authority"`
	StateDir               string        `mapstructure:"state_dir"`
	Watch                  bool          `mapstructure:"watch"`
	EagerActivationTimeout time.Duration `mapstructure:"eager_activation_timeout" validate:"gt=0"`
	TerminationTimeout     time.Duration `mapstructure:"termination_timeout" validate:"gt=0"`
}

var validate = validator.New()

// loadConfig resolves the configuration of cmd.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("workspace_id", "default")
	v.SetDefault("log_level", "info")
	v.SetDefault("eager_activation_timeout", host.DefaultEagerActivationTimeout)
	v.SetDefault("termination_timeout", host.DefaultTerminationTimeout)

	var bindErr error
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Name == flagConfig || flag.Name == "help" {
			return
		}
		bindErr = errors.Join(bindErr, v.BindPFlag(configKey(flag.Name), flag))
	})
	if bindErr != nil {
		return nil, bindErr
	}

	if path, _ := cmd.Flags().GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, gerrors.NewErrInvalidConfig(fmt.Errorf("failed to decode configuration: %w", err))
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, gerrors.NewErrInvalidConfig(err)
	}

	if info, err := os.Stat(cfg.ExtensionsDir); err != nil || !info.IsDir() {
		return nil, gerrors.NewErrInvalidConfig(fmt.Errorf("extensions directory %s is not a directory", cfg.ExtensionsDir))
	}
	return &cfg, nil
}

// configKey maps a flag name to its configuration key.
func configKey(flag string) string {
	switch flag {
	case flagFolder:
		return "folders"
	default:
		return strings.ReplaceAll(flag, "-", "_")
	}
}
