package main

import "venue-backend/cmd"

func main() {
	cmd.Execute()
}
