package main

//go:generate swag init -g cmd/tokenwatch/main.go -o docs

// @title           Tokenwatch API
// @version         0.1.0
// @description     Token discovery, safety checks, tiered alerts, and live streaming controls.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
