package main

import "github.com/MisterSynergy/rfc-protect/cmd"

func main() {
	cmd.Execute()
}
