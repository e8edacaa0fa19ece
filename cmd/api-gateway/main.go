package main

import (
	"fmt"
	"os"

	_ "github.com/noah-isme/edumarket-api/api/swagger"
)

// @title EduMarket API
// @version 1.0.0
// @description Marketplace for student study materials.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
