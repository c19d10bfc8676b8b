// The main package for the progresswatch executable.
package main

import (
	"github.com/JakeFAU/overall-progress/cmd"
)

func main() {
	cmd.Execute()
}
