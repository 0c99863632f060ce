package main

import (
	"os"

	"github.com/joho/godotenv"

	fastragcmder "github.com/papercomputeco/fastrag/cmd/fastrag"
)

func main() {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()

	cmd := fastragcmder.NewFastragCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
