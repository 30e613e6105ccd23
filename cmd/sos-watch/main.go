package main

import "github.com/oshokin/sos-button/cmd/sos-watch/cmd"

func main() {
	cmd.Execute()
}
