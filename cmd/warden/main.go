// Command warden is the entry point for the declarative GitHub
// organization permissions controller.
package main

import "github.com/oakline-labs/warden/internal/cmd"

func main() {
	cmd.Execute()
}
