package main

import "github.com/relloyd/batchetl/cmd"

func main() {
	cmd.Execute()
}
