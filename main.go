// The main package for the lawharvest executable.
package main

import "github.com/sgg-bj/lawharvest/cmd"

func main() {
	cmd.Execute()
}
