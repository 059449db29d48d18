package main

import "github.com/finbuddy/fin/cmd"

func main() {
	cmd.Execute()
}
