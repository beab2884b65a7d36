package main

import "github.com/attendify/kiosk/cmd"

func main() {
	cmd.Execute()
}
