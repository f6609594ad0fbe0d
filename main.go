// @title Memeup 游戏进度 API
// @version 1.0
// @description Memeup 闯关答题的进度引擎：关卡解锁、出题、计分与排行榜。

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"memeup_backend/internal/cli"
	"os"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
