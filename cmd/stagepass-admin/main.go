// Command stagepass-admin is the operator CLI for the membership API.
package main

import (
	"fmt"
	"os"

	"github.com/stagepass/api/cmd/stagepass-admin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
