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

// Package commands implements the exthost command line.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the exthost command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "exthost",
		Short: "exthost - extension activation and lifecycle controller",
		Long: `exthost discovers extension manifests, activates the extensions on their
activation events and deactivates them on shutdown.

Use "exthost [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String(flagConfig, "", "config file (yaml)")
	root.PersistentFlags().String(flagExtensionsDir, "", "directory holding one subdirectory per extension")
	root.PersistentFlags().String(flagLogLevel, "info", "log level: debug, info, warn or error")

	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

// Execute runs the exthost command line.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		return err
	}
	return nil
}
