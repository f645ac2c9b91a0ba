package server

//go:generate swag init -g internal/server/server.go -o internal/server/docs

// @title ThreatCheck API
// @version 0.1
// @description Fail-closed URL and file-hash verification against a remote reputation service.
// @contact.name ThreatCheck Maintainers
// @contact.url https://github.com/raysh454/threatcheck
// @BasePath /
