package main

import "github.com/example/pagevault/cmd"

func main() {
	cmd.Execute()
}
