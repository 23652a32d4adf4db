package main

import "chat-backend/cmd"

func main() {
	cmd.Execute()
}
