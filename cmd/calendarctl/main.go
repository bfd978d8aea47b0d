package main

import (
	"os"

	"compliance_calendar/cmd/calendarctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
