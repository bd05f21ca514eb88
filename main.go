package main

import "github.com/itm-space/backend-resources/cmd"

func main() {
	cmd.Execute()
}
