package main

import "calendar-share/cmd"

func main() {
	cmd.Run()
}
