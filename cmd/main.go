package main

import "github.com/adanyl0v/go-taskboard/internal/app"

func main() {
	app.InitDefaultLogger()
	app.MustReadEnv()
	app.MustInitApplicationLogger()

	app.MustConnectPostgres()
	defer app.DisconnectPostgres()
	app.MustMigratePostgres()

	app.MustInitBoard()
	defer app.ShutdownBoard()

	app.MustListenAndServeHTTP()
}
