// Package main is the telepanel command.
package main

import "github.com/sarchlab/telepanel/telepanel/cmd"

func main() {
	cmd.Execute()
}
