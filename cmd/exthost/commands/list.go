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
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tochemey/exthost/manifest"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the extensions found in the extensions directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := cmd.Flags().GetString(flagExtensionsDir)
			if err != nil {
				return err
			}
			if dir == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				dir = cfg.ExtensionsDir
			}

			set, err := manifest.Load(dir)
			if set == nil {
				return err
			}
			if err != nil {
				cmd.PrintErrln("Skipped:", err)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Version", "Main", "Builtin", "Activation Events"})
			table.SetAutoWrapText(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetBorder(false)
			table.SetCenterSeparator("")
			table.SetColumnSeparator("")
			table.SetRowSeparator("")
			table.SetHeaderLine(false)
			table.SetTablePadding("  ")
			table.SetNoWhiteSpace(true)
			for _, desc := range set.Descriptors() {
				table.Append([]string{
					desc.ID.String(),
					desc.Version,
					desc.Main,
					strconv.FormatBool(desc.Builtin),
					strings.Join(desc.ActivationEvents, ","),
				})
			}
			table.Render()
			return nil
		},
	}
}
