package main

import "invkeeper/cmd/client/cmd"

func main() {
	cmd.Execute()
}
