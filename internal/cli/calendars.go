package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List the calendars on your account",
	RunE:  runCalendars,
}

func runCalendars(cmd *cobra.Command, args []string) error {
	printHeader("📅 Calendars")

	deps, err := buildServices(cmd.Context())
	if err != nil {
		return err
	}

	cals, err := deps.service.ListCalendars(cmd.Context())
	if err != nil {
		return fmt.Errorf("list calendars: %w", err)
	}

	for _, c := range cals {
		line := fmt.Sprintf("%s  (%s)", c.Summary, c.ID)
		if c.Primary {
			line = color.GreenString(line + "  [primary]")
		}
		fmt.Println(line)
	}
	return nil
}
