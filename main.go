package main

import (
	"helder/cmd/handlers"
	"helder/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
