package main

import "github/chapool/signing-gateway/cmd"

func main() {
	cmd.Execute()
}
