package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// validatorJSON describes one validator for --json output.
type validatorJSON struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Category     core.Category `json:"category"`
	Priority     int           `json:"priority"`
	Dependencies []string      `json:"dependencies"`
	Fixable      bool          `json:"fixable"`
}

func newValidatorsCmd(root *rootFlags) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "validators",
		Short: "List the validators in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.setup(cmd)
			if err != nil {
				return err
			}
			reg := a.engine.Registry()
			order, err := reg.ResolveDependencies(reg.All())
			if err != nil {
				return err
			}

			list := make([]validatorJSON, 0, len(order))
			for _, v := range order {
				_, fixable := v.(core.Fixer)
				deps := v.Dependencies()
				if deps == nil {
					deps = []string{}
				}
				list = append(list, validatorJSON{
					Name:         v.Name(),
					Description:  v.Description(),
					Category:     v.Category(),
					Priority:     v.Priority(),
					Dependencies: deps,
					Fixable:      fixable,
				})
			}

			if jsonOut {
				return writeJSON(cmd, list)
			}

			rows := make([][]string, 0, len(list))
			for _, v := range list {
				fix := ""
				if v.Fixable {
					fix = "yes"
				}
				rows = append(rows, []string{
					strconv.Itoa(v.Priority), v.Name, string(v.Category),
					strings.Join(v.Dependencies, ", "), fix, v.Description,
				})
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("PRIORITY", "NAME", "CATEGORY", "DEPENDS ON", "FIX", "DESCRIPTION").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write the list as JSON")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
