package main

import "httpconnect/cmd"

func main() {
	cmd.Execute()
}
