package main

import "github.com/jordanlambrecht/sports-media-organizer/internal/cmd"

func main() {
	cmd.Execute()
}
