package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	chatgatecmder "github.com/papercomputeco/chatgate/cmd/chatgate"
)

func main() {
	cmd := chatgatecmder.NewChatgateCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
