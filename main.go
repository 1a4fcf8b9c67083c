// ABOUTME: Entry point for steam-hour-farmer
// ABOUTME: Keeps a Steam account logged in and playing the configured games

package main

import (
	"fmt"
	"os"

	"github.com/markalston/steam-hour-farmer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !cmd.Reported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
